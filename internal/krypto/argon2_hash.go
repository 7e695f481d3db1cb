package krypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen = 16
	keyLen  = 32

	// Parameters as recommended by RFC 9106 for memory-constrained
	// environments.
	argonMemoryKiB   = 47104
	argonIterations  = 1
	argonParallelism = 1

	argonVariant = "argon2id"
)

// ErrInvalidHash indicates a hash could not be parsed.
var ErrInvalidHash = errors.New("invalid argon2 hash")

// Argon2Hash is the result of hashing data using the argon2id algorithm.
//
// Unlike the data it was derived from, a hash is safe to persist and
// to encode using the standard PHC string format.
type Argon2Hash struct {
	Variant     string
	Version     int
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	Salt        []byte
	Hash        []byte
}

// HashArgon2 hashes the provided data with a random salt.
func HashArgon2(data []byte) (Argon2Hash, error) {
	salt, err := genRandomBytes(saltLen)
	if err != nil {
		return Argon2Hash{}, err
	}

	return hashWithSalt(data, salt), nil
}

func hashWithSalt(data, salt []byte) Argon2Hash {
	key := argon2.IDKey(data, salt, argonIterations, argonMemoryKiB, argonParallelism, keyLen)

	return Argon2Hash{
		Variant:     argonVariant,
		Version:     argon2.Version,
		MemoryKiB:   argonMemoryKiB,
		Iterations:  argonIterations,
		Parallelism: argonParallelism,
		Salt:        salt,
		Hash:        key,
	}
}

// Match checks if the provided data hashes to this hash, using the
// parameters and salt stored in the hash. The comparison is done in
// constant time.
func (h Argon2Hash) Match(data []byte) bool {
	key := argon2.IDKey(data, h.Salt, h.Iterations, h.MemoryKiB, h.Parallelism, uint32(len(h.Hash)))
	return subtle.ConstantTimeCompare(h.Hash, key) == 1
}

// String encodes the hash using the PHC string format:
//
//	$argon2id$v=19$m=47104,t=1,p=1$<base64 salt>$<base64 hash>
func (h Argon2Hash) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "$%s$v=%d$m=%d,t=%d,p=%d$", h.Variant, h.Version, h.MemoryKiB, h.Iterations, h.Parallelism)
	b.WriteString(base64.RawStdEncoding.EncodeToString(h.Salt))
	b.WriteString("$")
	b.WriteString(base64.RawStdEncoding.EncodeToString(h.Hash))
	return b.String()
}

// ParseArgon2Hash parses a hash in the PHC string format.
func ParseArgon2Hash(raw string) (Argon2Hash, error) {
	parts := strings.Split(raw, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Argon2Hash{}, ErrInvalidHash
	}

	if parts[1] != argonVariant {
		return Argon2Hash{}, fmt.Errorf("unsupported variant %q: %w", parts[1], ErrInvalidHash)
	}

	h := Argon2Hash{
		Variant: parts[1],
	}

	if _, err := fmt.Sscanf(parts[2], "v=%d", &h.Version); err != nil {
		return Argon2Hash{}, ErrInvalidHash
	}

	if h.Version != argon2.Version {
		return Argon2Hash{}, fmt.Errorf("unsupported version %d: %w", h.Version, ErrInvalidHash)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.MemoryKiB, &h.Iterations, &h.Parallelism); err != nil {
		return Argon2Hash{}, ErrInvalidHash
	}

	var err error
	h.Salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Argon2Hash{}, ErrInvalidHash
	}

	h.Hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Argon2Hash{}, ErrInvalidHash
	}

	return h, nil
}

// MarshalText implements encoding.TextMarshaler.
func (h Argon2Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Argon2Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseArgon2Hash(string(text))
	if err != nil {
		return err
	}

	*h = parsed
	return nil
}

// Scan implements sql.Scanner so hashes can be read directly from
// database columns.
func (h *Argon2Hash) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return h.UnmarshalText([]byte(v))
	case []byte:
		return h.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Argon2Hash", src)
	}
}

// LogValue implements the slog.Valuer interface. Hashes are resistant
// to offline attacks but there is no reason to ever log them.
func (h Argon2Hash) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}

func genRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}
