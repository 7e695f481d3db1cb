package web

import (
	"net/http"
	"net/url"

	"github.com/gorilla/csrf"

	"github.com/mwolthuis/ticklist/internal"
)

// viewData is the data passed to every rendered view.
type viewData struct {
	Version    string
	CSRFToken  string
	IsLoggedIn bool
	UserID     int
	Flashes    []any
	// Form holds the submitted values when a form is re-rendered after a
	// validation failure, so the user doesn't retype everything.
	Form url.Values
	// Errors are the accumulated validation messages for the form.
	Errors []string
	Data   any
}

// prepViewData prepares the data that will be passed to the view.
func (s *Server) prepViewData(r *http.Request, data any) (*viewData, error) {
	sess, err := sessionFromCtx(r.Context())
	if err != nil {
		return nil, err
	}

	userID, loggedIn := sess.UserID()

	return &viewData{
		Version:    internal.BuildRevision,
		CSRFToken:  csrf.Token(r),
		IsLoggedIn: loggedIn,
		UserID:     userID,
		Flashes:    sess.ConsumeFlashes(),
		Form:       r.PostForm,
		Data:       data,
	}, nil
}
