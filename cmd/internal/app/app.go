// Package app wires the Crabba bridge runtime: config, logging,
// storage, the homeserver client, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"crabba/cmd/identity"
	"crabba/cmd/internal/auth/session"
	"crabba/cmd/internal/bridge"
	"crabba/cmd/internal/homeserver"
	"crabba/cmd/security/regmac"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a small app-level lifecycle abstraction for resources that
// must be closed on shutdown.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// App is the bridge runtime: it owns the HTTP server and the lifecycle
// of its backing resources.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	bridge *bridge.Handler
}

// New constructs a fully wired App instance from config and logger.
// The caller is expected to have run ValidateSecurityConfig first.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	st, idStore, dbPool, dbEnabled, err := newIdentityStore(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	sharedSecret, err := regmac.SharedSecretFromEnv(minSharedSecretBytes)
	if err != nil {
		_ = st.Close(context.Background())
		return nil, err
	}

	hs, err := homeserver.NewClient(homeserver.ClientConfig{
		HomeserverURL:     cfg.HomeserverURL,
		DeviceDisplayName: cfg.DeviceName,
		Logger:            log,
	})
	if err != nil {
		_ = st.Close(context.Background())
		return nil, err
	}

	verifier, err := session.NewVerifier([]byte(cfg.SessionSecret), cfg.SessionCookie)
	if err != nil {
		_ = st.Close(context.Background())
		return nil, err
	}

	svc := bridge.NewService(log, cfg.Bridge, idStore, hs, sharedSecret)
	handler := bridge.NewHandler(log, cfg.Bridge, svc, verifier, dbPool)

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		bridge:    handler,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or
// fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.bridge)

	var handler http.Handler = mux
	handler = WithCORS(handler, a.cfg.CORSAllowOrigin)
	handler = WithSecurityHeaders(handler)
	handler = WithRequestLogging(handler, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newIdentityStore decides between Postgres-backed persistence and an
// in-memory dev store.
func newIdentityStore(ctx context.Context, cfg Config, log Logger) (Store, identity.Store, *pgxpool.Pool, bool, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("db.disabled.inmemory_store",
			"detail", "identities will not survive restarts")
		return nopStore{}, identity.NewMemoryStore(), nil, false, nil
	}

	if cfg.MigrateOnStart {
		if err := RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			return nil, nil, nil, false, err
		}
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, nil, false, err
	}

	idStore, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, false, err
	}

	log.Info("db.enabled.postgres_store")
	return dbStore{pool: pool}, idStore, pool, true, nil
}
