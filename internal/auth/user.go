package auth

import (
	"time"

	"github.com/mwolthuis/ticklist/internal/email"
	"github.com/mwolthuis/ticklist/internal/krypto"
)

// User contains the data for a user account.
//
// Users are created in an unverified state by Register and become
// verified exactly once, when a valid activation token is presented.
// Users are never deleted.
type User struct {
	ID              int
	Username        string
	Email           email.Address
	PasswordHash    krypto.Argon2Hash
	IsEmailVerified bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
