package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pyrechat/pyre-server/internal/auth"
	"github.com/pyrechat/pyre-server/internal/config"
	"github.com/pyrechat/pyre-server/internal/core"
	"github.com/pyrechat/pyre-server/internal/store"
	"github.com/pyrechat/pyre-server/internal/store/badgerstore"
	"github.com/pyrechat/pyre-server/internal/store/jsonfile"
	"github.com/pyrechat/pyre-server/internal/store/sqlite"
	transporthttp "github.com/pyrechat/pyre-server/internal/transport/http"
)

const (
	shutdownNotice   = "Server is shutting down"
	maxShutdownGrace = 500 * time.Millisecond
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	broadcaster     *core.Broadcaster
	sessions        *core.SessionHandler
	sessionCtx      context.Context
	cancelSessions  context.CancelFunc
	store           store.UserStore
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := openStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().
		Str("driver", cfg.Store.Driver).
		Str("path", cfg.Store.Path).
		Msg("user store initialized")

	jwtConfig := &auth.JWTConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.TokenTTL,
	}
	authService := auth.NewService(st, jwtConfig, auth.WithPasswordCost(cfg.PasswordCost))

	registry := core.NewRegistry()
	broadcaster := core.NewBroadcaster(registry, logger)
	sessions := core.NewSessionHandler(registry, broadcaster, authService, core.SessionConfig{
		Channel:            cfg.Channel,
		QueueSize:          cfg.SendQueueSize,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, logger)

	sessionCtx, cancelSessions := context.WithCancel(context.Background())

	server := transporthttp.NewServer(sessions, authService, cfg, logger)
	// Sessions run on request contexts, so cancelling the base context ends them.
	server.BaseContext = func(net.Listener) context.Context { return sessionCtx }

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		broadcaster:     broadcaster,
		sessions:        sessions,
		sessionCtx:      sessionCtx,
		cancelSessions:  cancelSessions,
		store:           st,
		log:             logger,
	}, nil
}

// openStore opens the credential store selected by cfg.Driver.
func openStore(cfg config.StoreConfig) (store.UserStore, error) {
	switch cfg.Driver {
	case config.StoreDriverFile, "":
		return jsonfile.New(cfg.Path)
	case config.StoreDriverSQLite:
		return sqlite.New(cfg.Path)
	case config.StoreDriverBadger:
		return badgerstore.New(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cancelSessions()
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.shutdownSessions(shutdownCtx)

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		if err := a.sessions.WaitIdle(shutdownCtx); err != nil {
			a.log.Warn().Err(err).Msg("sessions still open at shutdown")
		}

		a.cleanup()
		return <-serverErr
	}
}

// shutdownSessions tells every connected user the server is going away,
// gives the writers a moment to flush, then cancels all sessions.
func (a *App) shutdownSessions(ctx context.Context) {
	if n := a.broadcaster.Announce(core.KindSystem, shutdownNotice); n > 0 {
		grace := min(a.shutdownTimeout/5, maxShutdownGrace)
		select {
		case <-time.After(grace):
		case <-ctx.Done():
		}
	}
	a.cancelSessions()
}

// cleanup closes the store.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
