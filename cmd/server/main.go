package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mwolthuis/ticklist/assets"
	"github.com/mwolthuis/ticklist/internal"
	"github.com/mwolthuis/ticklist/internal/auth"
	authdb "github.com/mwolthuis/ticklist/internal/auth/db"
	"github.com/mwolthuis/ticklist/internal/db"
	"github.com/mwolthuis/ticklist/internal/email"
	emailview "github.com/mwolthuis/ticklist/internal/email/view"
	"github.com/mwolthuis/ticklist/internal/migrate"
	"github.com/mwolthuis/ticklist/internal/todo"
	tododb "github.com/mwolthuis/ticklist/internal/todo/db"
	"github.com/mwolthuis/ticklist/internal/web"
	websessions "github.com/mwolthuis/ticklist/internal/web/sessions"
	"github.com/mwolthuis/ticklist/internal/web/view"
	"github.com/mwolthuis/ticklist/migrations"
)

func main() {
	// A .env file is a convenience for development, deployments provide
	// real environment variables.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Stderr))
}

func run(ctx context.Context, w io.Writer) int {
	logger := slog.New(slog.NewTextHandler(w, nil))

	cfg, err := configFromEnv()
	if err != nil {
		logger.Error("failed to get config from environment", "error", err)
		return 1
	}

	// The write and read pools have different SQLite settings, writes go
	// through a single connection.
	writeDB, err := db.OpenSQLite(cfg.db.file, true)
	if err != nil {
		logger.Error("failed to open write database", "error", err)
		return 1
	}
	defer closeLogged(logger, "write database", writeDB)

	readDB, err := db.OpenSQLite(cfg.db.file, false)
	if err != nil {
		logger.Error("failed to open read database", "error", err)
		return 1
	}
	defer closeLogged(logger, "read database", readDB)

	if cfg.db.migrate {
		logger.Info("attempting to migrate database", "filename", cfg.db.file)

		ran, err := migrate.RunFS(ctx, writeDB, migrations.FS, migrate.Metadata{
			AppVersion: internal.BuildRevision,
			Timestamp:  time.Now(),
		})
		if err != nil {
			logger.Error("failed to migrate database", "error", err)
			return 1
		}

		for _, m := range ran {
			logger.Info("migration ran", "sequence", m.Sequence, "filename", m.Filename)
		}
	}

	emailSvc := email.NewService(
		emailview.NewFSRenderer(assets.EmailFS),
		email.NewLogSender(logger),
		cfg.email.from,
	)

	tokens := auth.NewTokenGenerator(cfg.auth.tokenKey, cfg.auth.tokenExpiry)

	authSvc, err := auth.NewService(
		authdb.New(writeDB, readDB),
		emailSvc,
		tokens,
		func(err error) {
			logger.Error("auth service error", "error", err)
		},
		auth.ServiceConfig{
			WorkerTimeout: cfg.auth.workerTimeout,
			BaseURL:       cfg.baseURL.String(),
		},
	)
	if err != nil {
		logger.Error("failed to create auth service", "error", err)
		return 1
	}

	todoSvc := todo.NewService(tododb.New(writeDB, readDB))

	viewRenderer, err := viewRenderer(logger, cfg.http.viewDir)
	if err != nil {
		logger.Error("failed to create view renderer", "error", err)
		return 1
	}

	srv := &http.Server{
		Addr:         cfg.http.addr,
		ReadTimeout:  cfg.http.readTimeout,
		WriteTimeout: cfg.http.writeTimeout,
		IdleTimeout:  cfg.http.idleTimeout,
		Handler: web.NewServer(&web.ServerDeps{
			Logger:       logger,
			ViewRenderer: viewRenderer,
			AuthService:  authSvc,
			TodoService:  todoSvc,
			SessionStore: websessions.NewStore(cookieStore(cfg.http)),
			DistFS:       http.FS(assets.DistFS),
		}, cfg.http.server),
	}

	// We need to run two tasks concurrently:
	// - Listen and serving of the HTTP server.
	// - Waiting for a signal to stop the server.

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"addr", cfg.http.addr,
			"buildRevision", internal.BuildRevision,
			"buildRevisionTime", internal.BuildRevisionTime,
			"buildLocalModified", internal.BuildLocalModified,
		)
		// ListenAndServe always returns a non-nil error,
		// g will cancel gCtx when an error is returned, so
		// this will also stop the other goroutine.
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("stopping http server")

		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.http.shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutCtx)
	})

	err = g.Wait()

	// Wait for any emails still being sent in the background.
	authSvc.Wait()

	if err != nil && err != http.ErrServerClosed {
		logger.Error("http server stopped with error", "error", err)
		return 1
	}

	logger.Info("http server stopped successfully")

	return 0
}

// viewRenderer returns the renderer for HTML views. By default views are
// parsed once from the embedded assets. With a view directory set they
// are parsed from disk on every request, so templates can change without
// a restart.
func viewRenderer(logger *slog.Logger, viewDir string) (web.ViewRenderer, error) {
	if viewDir != "" {
		logger.Info("loading templates from disk", "dir", viewDir)
		return view.NewFSRenderer(os.DirFS(viewDir)), nil
	}

	return view.NewMemRenderer(assets.TemplateFS)
}

// cookieStore creates the gorilla cookie store for sessions.
func cookieStore(cfg httpConfig) sessions.Store {
	keyPairs := make([][]byte, 0, len(cfg.cookieKeys))
	for _, key := range cfg.cookieKeys {
		keyPairs = append(keyPairs, key.SecretValue())
	}

	store := sessions.NewCookieStore(keyPairs...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.server.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}

	return store
}

func closeLogged(logger *slog.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close "+name, "error", err)
	}
}
