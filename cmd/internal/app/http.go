package app

import (
	"net/http"
	"time"

	"vows/cmd/internal/app/metrics"
	"vows/cmd/internal/auth"
	"vows/cmd/internal/dashboard"
	invitationapi "vows/cmd/internal/invitation/api"
	"vows/cmd/internal/rsvp"

	"github.com/jackc/pgx/v5/pgxpool"
)

func registerHTTP(
	mux *http.ServeMux,
	log Logger,
	cfg Config,
	dbPool *pgxpool.Pool,
	dbEnabled bool,
	authHandler *auth.Handler,
	invHandler *invitationapi.Handler,
	rsvpHandler *rsvp.Handler,
	ws *dashboard.WSGateway,
) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.ReadinessRequireDB && !dbEnabled {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if dbEnabled && dbPool != nil {
			if err := PingDB(r.Context(), dbPool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	mux.Handle("/metrics", metrics.Handler())

	authHandler.Register(mux)
	invHandler.Register(mux)
	rsvpHandler.Register(mux)

	mux.HandleFunc("/ws/dashboard", ws.HandleWS)
}
