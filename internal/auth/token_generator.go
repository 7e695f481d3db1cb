package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mwolthuis/ticklist/internal/krypto"
)

// DefaultTokenExpiry is how long activation tokens remain valid.
// Tokens are bucketed per day, so the effective window is rounded
// up to the end of the day the token expires in.
const DefaultTokenExpiry = 3 * 24 * time.Hour

const secondsPerDay = 24 * 60 * 60

// ErrInvalidToken indicates an activation token did not validate
// against the user it was presented for.
var ErrInvalidToken = errors.New("invalid activation token")

// TokenGenerator derives activation tokens from a user's identity and state.
//
// Tokens are not persisted. A token is an HMAC over the user's ID, their
// current password hash and a day-granularity timestamp:
//
//	<day bucket as base36>-<hex hmac-sha256>
//
// Because the password hash is part of the MAC input, changing the
// password invalidates all outstanding tokens. Because the day bucket is
// part of it, tokens expire once the bucket falls outside the expiry
// window. Presenting a valid token twice is harmless, activation is
// idempotent.
type TokenGenerator struct {
	key    krypto.Key
	expiry time.Duration

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

// NewTokenGenerator creates a generator signing with the provided key.
// If expiry is zero, DefaultTokenExpiry is used.
func NewTokenGenerator(key krypto.Key, expiry time.Duration) *TokenGenerator {
	if expiry == 0 {
		expiry = DefaultTokenExpiry
	}

	return &TokenGenerator{
		key:     key,
		expiry:  expiry,
		NowFunc: time.Now,
	}
}

// Generate derives a token for the provided user.
func (g *TokenGenerator) Generate(u User) string {
	day := g.NowFunc().Unix() / secondsPerDay
	return strconv.FormatInt(day, 36) + "-" + g.mac(u, day)
}

// Validate checks if the token was derived from the provided user within
// the expiry window.
func (g *TokenGenerator) Validate(u User, token string) bool {
	dayStr, macStr, ok := strings.Cut(token, "-")
	if !ok {
		return false
	}

	day, err := strconv.ParseInt(dayStr, 36, 64)
	if err != nil {
		return false
	}

	nowDay := g.NowFunc().Unix() / secondsPerDay
	if day > nowDay || nowDay-day > g.expiryDays() {
		return false
	}

	return hmac.Equal([]byte(macStr), []byte(g.mac(u, day)))
}

func (g *TokenGenerator) mac(u User, day int64) string {
	h := hmac.New(sha256.New, g.key.SecretValue())
	fmt.Fprintf(h, "%d|%s|%d", u.ID, u.PasswordHash.String(), day)
	return hex.EncodeToString(h.Sum(nil))
}

func (g *TokenGenerator) expiryDays() int64 {
	return int64(g.expiry / (secondsPerDay * time.Second))
}

// EncodeUserID encodes a user ID the way it appears in activation links.
func EncodeUserID(id int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(id)))
}

// DecodeUserID decodes the user ID segment of an activation link.
func DecodeUserID(raw string) (int, error) {
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(string(b))
}
