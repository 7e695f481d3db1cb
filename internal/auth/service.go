// Package auth provides registration, activation and authentication of users.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mwolthuis/ticklist/internal/email"
	"github.com/mwolthuis/ticklist/internal/errorz"
	"github.com/mwolthuis/ticklist/internal/krypto"
)

var (
	// ErrPasswordTooShort indicates a registration password under the minimum length.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrPasswordMismatch indicates the two registration passwords differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrUsernameRequired indicates an empty username.
	ErrUsernameRequired = errors.New("username required")
	// ErrUsernameTaken indicates the username is already in use.
	ErrUsernameTaken = errors.New("username taken")
	// ErrEmailTaken indicates the email address is already in use.
	ErrEmailTaken = errors.New("email taken")
	// ErrInvalidCredentials indicates a failed authentication attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotVerified indicates correct credentials for an account that has
	// not confirmed its email address yet.
	ErrNotVerified = errors.New("email not verified")
)

// Emailer is used to send templated emails.
type Emailer interface {
	Send(ctx context.Context, template string, to email.Address, data any) error
}

// ErrFunc is a function that handles errors.
type ErrFunc func(error)

// ServiceConfig is the configuration for the Service.
type ServiceConfig struct {
	// WorkerTimeout is the max duration worker goroutines are allowed
	// to take before they are cancelled.
	WorkerTimeout time.Duration
	// BaseURL is the public URL of the app, used to build activation links.
	BaseURL string
}

// Service is the type that provides the main rules for
// authentication.
type Service struct {
	store      Store
	emailer    Emailer
	tokens     *TokenGenerator
	wg         *sync.WaitGroup
	errHandler ErrFunc
	cfg        ServiceConfig

	// comparisonHash is used to compare passwords when no user was found.
	comparisonHash krypto.Argon2Hash

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(s Store, emailer Emailer, tokens *TokenGenerator, errHandler ErrFunc, cfg ServiceConfig) (*Service, error) {
	tok, err := krypto.GenerateToken()
	if err != nil {
		return nil, err
	}

	hash, err := krypto.HashArgon2(tok[:])
	if err != nil {
		return nil, err
	}

	svc := &Service{
		store:          s,
		emailer:        emailer,
		tokens:         tokens,
		wg:             &sync.WaitGroup{},
		errHandler:     errHandler,
		cfg:            cfg,
		comparisonHash: hash,
		NowFunc:        time.Now,
	}

	return svc, nil
}

// Wait waits for all open workers to finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// RegisterInput is the raw form input for a registration attempt.
//
// The fields are deliberately unparsed strings. Validation needs to
// report every applicable problem at once, value types that fail on
// construction would short-circuit that.
type RegisterInput struct {
	Username  string
	Email     string
	Password1 string
	Password2 string
}

// Register validates the input and creates a new unverified user.
//
// Validation does not short-circuit: all applicable rules are checked and
// any failures are returned together as an errorz.InvalidInput. No user
// is created in that case.
//
// On success the activation email is sent from a separate goroutine, so
// the response does not wait on email delivery. A failure to send is
// reported to the error handler, not to the caller: the user row is
// already committed at that point and delivery is at-most-once.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	var errs errorz.InvalidInput

	if len(in.Password1) < MinPasswordLen {
		errs = append(errs, errorz.Keyed{Key: "password1", Err: ErrPasswordTooShort})
	} else if len(in.Password1) > maxPasswordBytes {
		errs = append(errs, errorz.Keyed{Key: "password1", Err: ErrInvalidPassword})
	}

	if in.Password1 != in.Password2 {
		errs = append(errs, errorz.Keyed{Key: "password2", Err: ErrPasswordMismatch})
	}

	addr, addrErr := email.ParseAddress(in.Email)
	if addrErr != nil {
		errs = append(errs, errorz.Keyed{Key: "email", Err: email.ErrInvalidEmail})
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		errs = append(errs, errorz.Keyed{Key: "username", Err: ErrUsernameRequired})
	}

	var user User
	err := s.inTx(ctx, func(tx Tx) error {
		// The taken checks happen in the same transaction as the insert,
		// the unique indexes are the last line of defense against races.
		if username != "" {
			users, txErr := tx.FindUsers(&UserFilter{Usernames: []string{username}})
			if txErr != nil {
				return txErr
			}
			if len(users) > 0 {
				errs = append(errs, errorz.Keyed{Key: "username", Err: ErrUsernameTaken})
			}
		}

		if addrErr == nil {
			users, txErr := tx.FindUsers(&UserFilter{Emails: []email.Address{addr}})
			if txErr != nil {
				return txErr
			}
			if len(users) > 0 {
				errs = append(errs, errorz.Keyed{Key: "email", Err: ErrEmailTaken})
			}
		}

		if len(errs) > 0 {
			return errs
		}

		pwd, txErr := ParsePassword(in.Password1)
		if txErr != nil {
			return txErr
		}

		pwdHash, txErr := pwd.Hash()
		if txErr != nil {
			return txErr
		}

		now := s.NowFunc()
		user = User{
			Username:        username,
			Email:           addr,
			PasswordHash:    pwdHash,
			IsEmailVerified: false,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		return tx.CreateUser(&user)
	})
	if err != nil {
		return User{}, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		wCtx, cancel := context.WithTimeout(context.Background(), s.cfg.WorkerTimeout)
		defer cancel()

		if err := s.sendActivationEmail(wCtx, user); err != nil {
			s.errHandler(err)
		}
	}()

	return user, nil
}

// ActivationEmail is the data passed to the activation email template.
type ActivationEmail struct {
	Username string
	Link     string
}

func (s *Service) sendActivationEmail(ctx context.Context, u User) error {
	token := s.tokens.Generate(u)

	return s.emailer.Send(ctx, "user-activation", u.Email, ActivationEmail{
		Username: u.Username,
		Link:     s.ActivationURL(u.ID, token),
	})
}

// ActivationURL builds the link embedded in activation emails:
//
//	<base URL>/activate-user/<base64 user id>/<token>
func (s *Service) ActivationURL(userID int, token string) string {
	return fmt.Sprintf("%s/activate-user/%s/%s",
		strings.TrimSuffix(s.cfg.BaseURL, "/"), EncodeUserID(userID), token)
}

// Authenticate checks the provided credentials against the user store.
//
// It returns ErrInvalidCredentials when the username is unknown or the
// password does not match, and ErrNotVerified when the credentials are
// correct but the account has not been activated. The verification flag
// is only consulted after the credentials have been confirmed.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	users, err := s.store.FindUsers(ctx, &UserFilter{
		Usernames: []string{strings.TrimSpace(username)},
	})
	if err != nil {
		return User{}, err
	}

	pwd, pwdErr := ParsePassword(password)

	if len(users) != 1 {
		// Even if no user is found we compare to a hash to prevent timing differences
		// that could result in user enumeration attacks.
		_ = pwd.Match(s.comparisonHash)
		return User{}, ErrInvalidCredentials
	}

	if pwdErr != nil || !pwd.Match(users[0].PasswordHash) {
		return User{}, ErrInvalidCredentials
	}

	if !users[0].IsEmailVerified {
		return User{}, ErrNotVerified
	}

	return users[0], nil
}

// Activate attempts to verify the user identified by an activation link.
//
// It distinguishes errorz.ErrNotFound (bad user id segment, no such user)
// from ErrInvalidToken (user exists, token does not validate). Callers
// rendering responses should collapse both into one failure message so
// the distinction does not leak account existence.
//
// Activating an already verified user with a valid token is a no-op.
func (s *Service) Activate(ctx context.Context, uidB64, token string) (User, error) {
	id, err := DecodeUserID(uidB64)
	if err != nil {
		return User{}, fmt.Errorf("undecodable user id: %w", errorz.ErrNotFound)
	}

	var user User
	err = s.inTx(ctx, func(tx Tx) error {
		users, txErr := tx.FindUsers(&UserFilter{IDs: []int{id}})
		if txErr != nil {
			return txErr
		}

		if len(users) != 1 {
			return errorz.ErrNotFound
		}

		user = users[0]

		if !s.tokens.Validate(user, token) {
			return ErrInvalidToken
		}

		if user.IsEmailVerified {
			return nil
		}

		user.IsEmailVerified = true
		user.UpdatedAt = s.NowFunc()

		return tx.UpdateUser(&user)
	})
	if err != nil {
		return User{}, err
	}

	return user, nil
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	return tx.Commit()
}
