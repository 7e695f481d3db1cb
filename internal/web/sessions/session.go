// Package sessions wraps gorilla sessions with the operations the app needs.
package sessions

import (
	"github.com/gorilla/sessions"
)

// Session is the per-browser session. It tracks the authenticated user
// and pending flash messages.
type Session struct {
	base      *sessions.Session
	needsSave bool
}

func (s *Session) NeedsSave() bool {
	return s.needsSave
}

// UserID returns the authenticated user's ID, if any.
func (s *Session) UserID() (int, bool) {
	userID, ok := s.base.Values["userID"].(int)
	return userID, ok
}

func (s *Session) SetUserID(userID int) {
	s.needsSave = true
	s.base.Values["userID"] = userID
}

func (s *Session) DeleteUserID() {
	s.needsSave = true
	delete(s.base.Values, "userID")
}

// AddFlash queues a message to be shown on the next rendered page.
func (s *Session) AddFlash(flash any, vars ...string) {
	s.needsSave = true
	s.base.AddFlash(flash, vars...)
}

// ConsumeFlashes returns the queued flash messages and clears them.
func (s *Session) ConsumeFlashes() []any {
	flashes := s.base.Flashes()
	if len(flashes) > 0 {
		s.needsSave = true
	}
	return flashes
}
