// Package web maps HTTP requests to the auth and todo workflows.
package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/schema"

	"github.com/mwolthuis/ticklist/internal/auth"
	"github.com/mwolthuis/ticklist/internal/errorz"
	"github.com/mwolthuis/ticklist/internal/krypto"
	"github.com/mwolthuis/ticklist/internal/todo"
	"github.com/mwolthuis/ticklist/internal/web/sessions"
)

const (
	csrfTokenCookieName = "tl-csrf"
	csrfTokenField      = "csrf_token"
)

// ViewRenderer renders named views with the given data.
type ViewRenderer interface {
	Render(w io.Writer, name string, data any) error
}

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger       *slog.Logger
	ViewRenderer ViewRenderer
	AuthService  *auth.Service
	TodoService  *todo.Service
	SessionStore *sessions.Store
	DistFS       http.FileSystem
}

// ServerConfig is the configuration for the server.
type ServerConfig struct {
	CSRFKey      krypto.Key
	SecureCookie bool
}

type Server struct {
	deps    *ServerDeps
	mux     *http.ServeMux
	decoder *schema.Decoder
	handler http.Handler
}

func NewServer(deps *ServerDeps, cfg ServerConfig) *Server {
	s := &Server{
		deps:    deps,
		mux:     http.NewServeMux(),
		decoder: schema.NewDecoder(),
	}

	// Homepage redirects to the todo index, the login-required gate takes
	// it from there for unauthenticated visitors.
	s.public("GET /{$}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/todos", http.StatusFound)
	}))

	// Register and login are only reachable without an authenticated
	// session.
	s.publicOnly("GET /register", http.HandlerFunc(s.getRegister))
	s.publicOnly("POST /register", http.HandlerFunc(s.postRegister))
	s.publicOnly("GET /login", http.HandlerFunc(s.getLogin))
	s.publicOnly("POST /login", http.HandlerFunc(s.postLogin))

	// Activation links must keep working on a browser where another
	// account is logged in.
	s.public("GET /activate-user/{uid}/{token}", http.HandlerFunc(s.getActivate))

	// Logout is unconditional, a safe no-op for agents that are already
	// logged out.
	s.public("POST /logout", http.HandlerFunc(s.postLogout))

	// The todo workflow requires an authenticated session.
	s.loggedIn("GET /todos", http.HandlerFunc(s.getTodoIndex))
	s.loggedIn("GET /todos/create", http.HandlerFunc(s.getTodoCreate))
	s.loggedIn("POST /todos/create", http.HandlerFunc(s.postTodoCreate))
	s.loggedIn("GET /todos/{id}", http.HandlerFunc(s.getTodoDetail))
	s.loggedIn("GET /todos/{id}/edit", http.HandlerFunc(s.getTodoEdit))
	s.loggedIn("POST /todos/{id}/edit", http.HandlerFunc(s.postTodoEdit))
	s.loggedIn("GET /todos/{id}/delete", http.HandlerFunc(s.getTodoDelete))
	s.loggedIn("POST /todos/{id}/delete", http.HandlerFunc(s.postTodoDelete))

	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(deps.DistFS)))

	// Wrap the mux with global middlewares.
	csrfMW := csrf.Protect(
		cfg.CSRFKey.SecretValue(),
		csrf.CookieName(csrfTokenCookieName),
		csrf.FieldName(csrfTokenField),
		csrf.Secure(cfg.SecureCookie),
	)

	middlewares := []func(http.Handler) http.Handler{
		s.logMiddleware,
		csrfMW,
		s.sessionMiddleware,
	}
	s.handler = s.mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		s.handler = middlewares[i](s.handler)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// writeView renders the named view with status 200.
func (s *Server) writeView(w http.ResponseWriter, r *http.Request, name string, data any) error {
	return s.writeViewStatus(w, r, name, data, http.StatusOK)
}

func (s *Server) writeViewStatus(w http.ResponseWriter, r *http.Request, name string, data any, status int) error {
	vd, err := s.prepViewData(r, data)
	if err != nil {
		return err
	}

	return s.renderViewData(w, r, name, vd, status)
}

func (s *Server) renderViewData(w http.ResponseWriter, r *http.Request, name string, vd *viewData, status int) error {
	sess, err := sessionFromCtx(r.Context())
	if err != nil {
		return err
	}

	// Consuming flashes modifies the session, save before writing the body.
	err = s.deps.SessionStore.Save(r, w, sess)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return s.deps.ViewRenderer.Render(w, name, vd)
}

// redirect saves the session and redirects. Handlers that queued a flash
// message need the session saved before the redirect response is written.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, url string) {
	sess, err := sessionFromCtx(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if sess.NeedsSave() {
		if err := s.deps.SessionStore.Save(r, w, sess); err != nil {
			s.handleError(w, r, err)
			return
		}
	}

	http.Redirect(w, r, url, http.StatusFound)
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errorz.ErrNotFound):
		s.errorPage(w, r, "404", http.StatusNotFound)
	default:
		s.deps.Logger.Error("internal server error", "url", r.URL.String(), "error", err)
		s.errorPage(w, r, "server-error", http.StatusInternalServerError)
	}
}

func (s *Server) errorPage(w http.ResponseWriter, r *http.Request, name string, status int) {
	err := s.writeViewStatus(w, r, name, nil, status)
	if err != nil {
		// Rendering the error page failed, fall back to a plain response.
		s.deps.Logger.Error("failed to render error page", "view", name, "error", err)
		http.Error(w, http.StatusText(status), status)
	}
}
