package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mwolthuis/ticklist/internal/auth"
	"github.com/mwolthuis/ticklist/internal/email"
	"github.com/mwolthuis/ticklist/internal/errorz"
)

func (s *Server) getRegister(w http.ResponseWriter, r *http.Request) {
	if err := s.writeView(w, r, "register", nil); err != nil {
		s.handleError(w, r, err)
	}
}

func (s *Server) postRegister(w http.ResponseWriter, r *http.Request) {
	var form registerForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleError(w, r, err)
		return
	}

	_, err := s.deps.AuthService.Register(r.Context(), auth.RegisterInput{
		Username:  form.Username,
		Email:     form.Email,
		Password1: form.Password1,
		Password2: form.Password2,
	})
	if err != nil {
		var invalidInput errorz.InvalidInput
		if errors.As(err, &invalidInput) {
			// Show every validation message at once and keep the submitted
			// values in the form.
			s.rerenderForm(w, r, "register", validationMessages(invalidInput))
			return
		}

		s.handleError(w, r, err)
		return
	}

	if err := s.flash(r, "We sent you an email to verify your account"); err != nil {
		s.handleError(w, r, err)
		return
	}
	s.redirect(w, r, "/login")
}

func (s *Server) getLogin(w http.ResponseWriter, r *http.Request) {
	if err := s.writeView(w, r, "login", nil); err != nil {
		s.handleError(w, r, err)
	}
}

func (s *Server) postLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleError(w, r, err)
		return
	}

	user, err := s.deps.AuthService.Authenticate(r.Context(), form.Username, form.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.rerenderForm(w, r, "login", []string{"Invalid credentials"})
		case errors.Is(err, auth.ErrNotVerified):
			// Correct credentials, but no session until the email is verified.
			s.rerenderForm(w, r, "login", []string{"Email is not verified, please check your email inbox"})
		default:
			s.handleError(w, r, err)
		}
		return
	}

	sess, err := sessionFromCtx(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	// We clear the CSRF token cookie to provide defense in depth against
	// fixation attacks. A new token will be generated on the next GET
	// request after the redirect.
	http.SetCookie(w, &http.Cookie{
		Name:   csrfTokenCookieName,
		MaxAge: -1,
	})

	sess.SetUserID(user.ID)
	sess.AddFlash(fmt.Sprintf("Welcome %s", user.Username))
	s.redirect(w, r, "/todos")
}

func (s *Server) postLogout(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromCtx(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	sess.DeleteUserID()
	sess.AddFlash("Successfully logged out")
	s.redirect(w, r, "/login")
}

func (s *Server) getActivate(w http.ResponseWriter, r *http.Request) {
	_, err := s.deps.AuthService.Activate(r.Context(), r.PathValue("uid"), r.PathValue("token"))
	if err != nil {
		// A missing user and an invalid token are presented identically,
		// the failure page should not leak which accounts exist.
		if errors.Is(err, errorz.ErrNotFound) || errors.Is(err, auth.ErrInvalidToken) {
			if vErr := s.writeView(w, r, "activate-failed", nil); vErr != nil {
				s.handleError(w, r, vErr)
			}
			return
		}

		s.handleError(w, r, err)
		return
	}

	if err := s.flash(r, "Email verified, you can now login"); err != nil {
		s.handleError(w, r, err)
		return
	}
	s.redirect(w, r, "/login")
}

// flash queues a flash message on the current session.
func (s *Server) flash(r *http.Request, msg string) error {
	sess, err := sessionFromCtx(r.Context())
	if err != nil {
		return err
	}

	sess.AddFlash(msg)
	return nil
}

// rerenderForm renders the named form view with validation messages and
// the submitted values preserved.
func (s *Server) rerenderForm(w http.ResponseWriter, r *http.Request, name string, msgs []string) {
	vd, err := s.prepViewData(r, nil)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	vd.Errors = msgs

	if err := s.renderViewData(w, r, name, vd, http.StatusOK); err != nil {
		s.handleError(w, r, err)
	}
}

func validationMessages(errs errorz.InvalidInput) []string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, validationMessage(err))
	}
	return msgs
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrPasswordTooShort):
		return "Password should be at least 6 characters"
	case errors.Is(err, auth.ErrPasswordMismatch):
		return "Password mismatch"
	case errors.Is(err, email.ErrInvalidEmail):
		return "Enter a valid email address"
	case errors.Is(err, auth.ErrUsernameRequired):
		return "Username is required"
	case errors.Is(err, auth.ErrUsernameTaken):
		return "Username is taken, choose another one"
	case errors.Is(err, auth.ErrEmailTaken):
		return "Email is taken, choose another one"
	default:
		return "Invalid input"
	}
}
