package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"taskboard/internal/ai"
	"taskboard/internal/blob"
	"taskboard/internal/calendar"
	"taskboard/internal/config"
	"taskboard/internal/db"
	"taskboard/internal/engine"
	"taskboard/internal/events"
	"taskboard/internal/logging"
	"taskboard/internal/migrate"
	"taskboard/internal/server"
)

// App is a fully wired engine plus the resources it owns.
type App struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *sql.DB
	Engine engine.Engine

	closers []func() error
}

// Options tweak Open. Zero values give the production wiring.
type Options struct {
	// Log replaces the logger built from cfg.Log.
	Log *zap.Logger
	// Offline skips every network collaborator (AI, calendar, blob, redis, nats).
	Offline bool
}

// Open connects the database, runs migrations and wires the optional
// collaborators that the config enables. Callers must Close the result.
func Open(ctx context.Context, workspace string, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{Config: cfg, Log: opts.Log}
	if a.Log == nil {
		l, err := logging.New(cfg.Log)
		if err != nil {
			return nil, err
		}
		a.Log = l
		a.closers = append(a.closers, func() error { _ = l.Sync(); return nil })
	}

	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	a.DB = conn
	a.closers = append(a.closers, conn.Close)
	if err := migrate.Migrate(conn); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a.Engine = engine.New(conn, a.Log.Named("engine"))
	a.Engine.AITimeout = cfg.AI.Timeout
	if opts.Offline {
		return a, nil
	}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config
	if cfg.AI.APIKey != "" {
		g, err := ai.NewGemini(ctx, cfg.AI.APIKey, cfg.AI.Models, a.Log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, g.Close)
		a.Engine.Generator = g
		a.Engine.Transcriber = g
	} else {
		a.Log.Info("ai api key not set; using deterministic fallbacks")
	}

	if cfg.Blob.Enabled {
		store, err := blob.NewMinioStore(ctx, cfg.Blob, a.Log)
		if err != nil {
			return err
		}
		a.Engine.Blobs = store
	}

	if cfg.NATS.URL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, a.Log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pub.Close)
		a.Engine.Publisher = pub
	}

	if cfg.Calendar.Enabled {
		var states calendar.StateStore = calendar.NewMemoryStateStore()
		if cfg.Redis.URL != "" {
			rs, err := calendar.NewRedisStateStore(ctx, cfg.Redis.URL, "taskboard")
			if err != nil {
				return err
			}
			a.closers = append(a.closers, rs.Close)
			states = rs
		}
		a.Engine.Calendar = &calendar.Service{
			OAuth:    calendar.NewOAuthConfig(cfg.Calendar),
			Provider: calendar.GoogleProvider{},
			States:   states,
			Tokens:   a.Engine.Repo,
			Timeout:  cfg.Calendar.Timeout,
			Log:      a.Log.Named("calendar"),
		}
	}
	return nil
}

// Handler builds the HTTP API over the wired engine.
func (a *App) Handler() (http.Handler, error) {
	return server.New(server.Config{
		Engine:   a.Engine,
		BasePath: a.Config.Server.BasePath,
		Auth: server.AuthConfig{
			JWTSecret: a.Config.Auth.JWTSecret,
			DevLogin:  a.Config.Auth.DevLogin,
			Log:       a.Log.Named("auth"),
		},
		Calendar: a.Config.Calendar,
		Log:      a.Log.Named("http"),
	})
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
