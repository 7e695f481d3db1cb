package main

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mwolthuis/ticklist/internal/auth"
	"github.com/mwolthuis/ticklist/internal/email"
	"github.com/mwolthuis/ticklist/internal/krypto"
	"github.com/mwolthuis/ticklist/internal/web"
)

// httpConfig is the configuration for the HTTP server.
type httpConfig struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	// cookieKeys are pairs of authentication and encryption keys for the
	// session cookie store. Multiple pairs allow key rotation, the first
	// pair is used to write new cookies.
	cookieKeys []krypto.Key
	// viewDir optionally points at a directory to load templates from
	// disk instead of the embedded ones.
	viewDir string
	server  web.ServerConfig
}

// dbConfig is the configuration for the database.
type dbConfig struct {
	file    string
	migrate bool
}

// authConfig is the configuration for the auth service.
type authConfig struct {
	// tokenKey signs account activation tokens.
	tokenKey      krypto.Key
	tokenExpiry   time.Duration
	workerTimeout time.Duration
}

// emailConfig is the configuration for outgoing email.
type emailConfig struct {
	from email.Address
}

// config is the configuration for the server command.
type config struct {
	// baseURL is the public URL of the app, used to construct absolute
	// links in emails.
	baseURL *url.URL
	http    httpConfig
	db      dbConfig
	auth    authConfig
	email   emailConfig
}

// defaultConfig returns a config with sane default values.
func defaultConfig() config {
	baseURL, err := url.Parse("http://localhost:8888")
	if err != nil {
		panic(err)
	}

	return config{
		baseURL: baseURL,
		http: httpConfig{
			addr:            ":8888",
			readTimeout:     time.Second * 5,
			writeTimeout:    time.Second * 10,
			idleTimeout:     time.Second * 120,
			shutdownTimeout: time.Second * 15,
			server: web.ServerConfig{
				SecureCookie: true,
			},
		},
		db: dbConfig{
			file:    "ticklist.db",
			migrate: true,
		},
		auth: authConfig{
			tokenExpiry:   auth.DefaultTokenExpiry,
			workerTimeout: time.Second * 10,
		},
	}
}

// requiredEnvKeys are environment variables without a usable default,
// mostly secrets.
var requiredEnvKeys = []string{
	"HTTP_COOKIE_KEYS",
	"HTTP_CSRF_KEY",
	"AUTH_TOKEN_KEY",
	"EMAIL_FROM",
}

// envMap maps environment variable names to fields in the config struct.
var envMap = map[string]func(v string, c *config) error{
	"BASE_URL": func(v string, c *config) error {
		return confURL(v, &c.baseURL)
	},
	"HTTP_ADDR": func(v string, c *config) error {
		c.http.addr = v
		return nil
	},
	"HTTP_READ_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.readTimeout, 0, math.MaxInt64)
	},
	"HTTP_WRITE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.writeTimeout, 0, math.MaxInt64)
	},
	"HTTP_IDLE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.idleTimeout, 0, math.MaxInt64)
	},
	"HTTP_SHUTDOWN_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.shutdownTimeout, 0, math.MaxInt64)
	},
	"HTTP_COOKIE_KEYS": func(v string, c *config) error {
		return confKeys(v, &c.http.cookieKeys)
	},
	"HTTP_CSRF_KEY": func(v string, c *config) error {
		return confKey(v, &c.http.server.CSRFKey)
	},
	"HTTP_SECURE_COOKIE": func(v string, c *config) error {
		return confBool(v, &c.http.server.SecureCookie)
	},
	"HTTP_VIEW_DIR": func(v string, c *config) error {
		c.http.viewDir = v
		return nil
	},
	"DB_FILENAME": func(v string, c *config) error {
		if v == "" {
			return errors.New("empty database filename")
		}
		c.db.file = v
		return nil
	},
	"DB_MIGRATE": func(v string, c *config) error {
		return confBool(v, &c.db.migrate)
	},
	"AUTH_TOKEN_KEY": func(v string, c *config) error {
		return confKey(v, &c.auth.tokenKey)
	},
	"AUTH_TOKEN_EXPIRY": func(v string, c *config) error {
		return confDuration(v, &c.auth.tokenExpiry, 0, math.MaxInt64)
	},
	"AUTH_WORKER_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.auth.workerTimeout, 0, math.MaxInt64)
	},
	"EMAIL_FROM": func(v string, c *config) error {
		from, err := email.ParseAddress(v)
		if err != nil {
			return err
		}
		c.email.from = from
		return nil
	},
}

// configFromEnv returns a config with values from the environment. It falls
// back to default values for any missing environment variables.
//
// It does a best effort to validate provided values, so that mistakes are
// caught ASAP. However, there is no guarantee that the returned config
// is valid and will work. All invalid env variables are reported in a
// single error.
func configFromEnv() (config, error) {
	c := defaultConfig()

	var errs []error
	for key, mf := range envMap {
		if val, ok := os.LookupEnv(key); ok {
			if err := mf(val, &c); err != nil {
				errs = append(errs, fmt.Errorf("invalid env variable %s: %w", key, err))
			}
		}
	}

	for _, key := range requiredEnvKeys {
		if _, ok := os.LookupEnv(key); !ok {
			errs = append(errs, fmt.Errorf("missing env variable %s", key))
		}
	}

	return c, errors.Join(errs...)
}

// confDuration attempts to parse v into tgt and checks if the result is in
// the provided range (inclusive).
func confDuration(v string, tgt *time.Duration, min, max time.Duration) error {
	dur, err := time.ParseDuration(v)
	if err != nil {
		return err
	}

	if dur < min || dur > max {
		return fmt.Errorf("duration %s not in range [%s, %s] (inclusive)", dur, min, max)
	}

	*tgt = dur

	return nil
}

func confBool(v string, tgt *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}

	*tgt = b

	return nil
}

func confKey(v string, tgt *krypto.Key) error {
	key, err := krypto.ParseKey(v)
	if err != nil {
		return err
	}

	*tgt = key

	return nil
}

// confKeys parses a comma separated list of hex encoded keys.
func confKeys(v string, tgt *[]krypto.Key) error {
	parts := strings.Split(v, ",")

	keys := make([]krypto.Key, 0, len(parts))
	for _, part := range parts {
		key, err := krypto.ParseKey(strings.TrimSpace(part))
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}

	*tgt = keys

	return nil
}

// confURL parses v and requires an absolute URL, relative URLs can't be
// used to construct links in emails.
func confURL(v string, tgt **url.URL) error {
	u, err := url.Parse(v)
	if err != nil {
		return err
	}

	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL %q is missing a scheme or host", v)
	}

	*tgt = u

	return nil
}
