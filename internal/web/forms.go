package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/schema"

	"github.com/mwolthuis/ticklist/internal/errorz"
)

// Checkbox is a boolean decoded from an HTML checkbox input.
//
// Browsers submit checked checkboxes as the literal string "on" and omit
// unchecked ones entirely, so the zero value (false) is the documented
// default for an absent field.
type Checkbox bool

func (c *Checkbox) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "on", "true", "1":
		*c = true
	case "", "off", "false", "0":
		*c = false
	default:
		return fmt.Errorf("invalid checkbox value %q", text)
	}

	return nil
}

// registerForm is the registration form, field names follow the HTML form.
type registerForm struct {
	Username  string `schema:"username"`
	Email     string `schema:"email"`
	Password1 string `schema:"password1"`
	Password2 string `schema:"password2"`
}

type loginForm struct {
	Username string `schema:"username"`
	Password string `schema:"password"`
}

type todoForm struct {
	Title       string   `schema:"title"`
	Description string   `schema:"description"`
	IsCompleted Checkbox `schema:"is_completed"`
}

// decodeForm parses the request form into dst using the schema decoder.
func (s *Server) decodeForm(r *http.Request, dst any) error {
	err := r.ParseForm()
	if err != nil {
		return err
	}

	// Remove the CSRF token from the form, it won't need to be mapped
	// to any target types and the decoder will fail on it.
	form := r.PostForm
	form.Del(csrfTokenField)

	return decodeError(s.decoder.Decode(dst, form))
}

func decodeError(err error) error {
	if err == nil {
		return nil
	}

	var multiErr schema.MultiError
	if errors.As(err, &multiErr) {
		var invalidInput errorz.InvalidInput
		for key, e := range multiErr {
			invalidInput = append(invalidInput, errorz.Keyed{
				Key: key,
				Err: e,
			})
		}

		return invalidInput
	}

	return err
}
