// Package app wires the Vows server runtime: config, logging, HTTP routes, and
// the dashboard WebSocket gateway.
//
// It is intentionally small and deterministic to keep CI gates strict and behavior predictable.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"vows/cmd/internal/app/metrics"
	"vows/cmd/internal/auth"
	"vows/cmd/internal/dashboard"
	"vows/cmd/internal/invitation"
	invitationapi "vows/cmd/internal/invitation/api"
	"vows/cmd/internal/rsvp"
	"vows/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

// App is the Vows server runtime: it owns HTTP wiring and the dashboard gateway.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	authHandler *auth.Handler
	invHandler  *invitationapi.Handler
	rsvpHandler *rsvp.Handler
	ws          *dashboard.WSGateway
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	st, dbPool, dbEnabled, stores, err := newStores(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	closeOnErr := func(err error) (*App, error) {
		_ = st.Close(context.Background())
		return nil, err
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		return closeOnErr(err)
	}

	authOpts := []auth.ServiceOption{auth.WithPasswordConfig(pwCfg)}
	if ttl := EnvDuration("VOWS_SESSION_TTL", 0); ttl > 0 {
		authOpts = append(authOpts, auth.WithSessionTTL(ttl))
	}
	authSvc, err := auth.NewService(log, stores.users, authOpts...)
	if err != nil {
		return closeOnErr(err)
	}

	var handlerOpts []auth.HandlerOption
	if dbEnabled {
		auditLog, err := auth.NewPostgresAuditLog(log, dbPool, cfg.DBSchema)
		if err != nil {
			return closeOnErr(err)
		}
		handlerOpts = append(handlerOpts, auth.WithAudit(auditLog))
	}
	authHandler, err := auth.NewHandler(log, authSvc, handlerOpts...)
	if err != nil {
		return closeOnErr(err)
	}

	invHandler, err := invitationapi.NewHandler(log, invitationapi.LoadConfigFromEnv(), stores.invitations, authSvc,
		invitationapi.WithResponses(stores.responses))
	if err != nil {
		return closeOnErr(err)
	}

	hub := dashboard.NewHub(log)

	rsvpSvc, err := rsvp.NewService(log, stores.invitations, stores.responses, rsvp.WithFeed(hub))
	if err != nil {
		return closeOnErr(err)
	}
	rsvpHandler, err := rsvp.NewHandler(log, rsvpSvc, authSvc)
	if err != nil {
		return closeOnErr(err)
	}

	ws, err := dashboard.NewWSGateway(log, hub, stores.invitations, authSvc)
	if err != nil {
		return closeOnErr(err)
	}

	return &App{
		cfg:         cfg,
		log:         log,
		store:       st,
		dbPool:      dbPool,
		dbEnabled:   dbEnabled,
		authHandler: authHandler,
		invHandler:  invHandler,
		rsvpHandler: rsvpHandler,
		ws:          ws,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()

	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled,
		a.authHandler, a.invHandler, a.rsvpHandler, a.ws)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler: metrics.InstrumentHandler(
			WithRequestLogging(WithSecurityHeaders(WithCORS(mux, a.cfg, a.log)), a.log)),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	base := runtimeBaseURL(a.cfg.HTTPAddr)
	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr, "url", base, "ws_url", wsBaseURL(base)+"/ws/dashboard",
		"db_enabled", a.dbEnabled)

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

	// Close store resources (pool etc).
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

// appStores groups the per-domain persistence interfaces behind one wiring seam.
type appStores struct {
	users       auth.Store
	invitations invitation.Store
	responses   rsvp.Store
}

// newStores decides between Postgres-backed persistence and in-memory dev stores.
func newStores(ctx context.Context, cfg Config, log Logger) (Store, *pgxpool.Pool, bool, appStores, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return nopStore{}, nil, false, appStores{
			users:       auth.NewMemoryStore(),
			invitations: invitation.NewMemoryStore(),
			responses:   rsvp.NewMemoryStore(),
		}, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, appStores{}, err
	}

	fail := func(err error) (Store, *pgxpool.Pool, bool, appStores, error) {
		pool.Close()
		return nil, nil, false, appStores{}, err
	}

	if cfg.DBApplySchema {
		if err := ApplySchema(ctx, pool, cfg.DBSchema); err != nil {
			return fail(err)
		}
	}

	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)

	// Ownership model: app owns the pool lifecycle; the stores just use it.
	users, err := auth.NewPostgresStore(pool, auth.WithSchema(cfg.DBSchema))
	if err != nil {
		return fail(err)
	}
	invitations, err := invitation.NewPostgresStore(pool, invitation.WithSchema(cfg.DBSchema))
	if err != nil {
		return fail(err)
	}
	responses, err := rsvp.NewPostgresStore(pool, rsvp.WithSchema(cfg.DBSchema))
	if err != nil {
		return fail(err)
	}

	return dbStore{pool: pool}, pool, true, appStores{
		users:       users,
		invitations: invitations,
		responses:   responses,
	}, nil
}

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
