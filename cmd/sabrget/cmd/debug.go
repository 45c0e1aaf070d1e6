package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/sabrgo/internal/sabr"
	"github.com/jmylchreest/sabrgo/internal/sabr/transport"
)

// debugServer exposes a running download's progress as JSON, grounded on
// internal/http/server.go's chi router setup and shrunk to the two
// read-only routes SPEC_FULL.md's debug sub-mode calls for: /stats
// (buffered ranges, last backoff, host fallback count) and /trace (the
// session's recent response parts, populated only when session.debug is
// enabled).
type debugServer struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// debugSnapshot is the JSON body served at GET /stats.
type debugSnapshot struct {
	sabr.Stats
	HostFallbackCount int `json:"host_fallback_count"`
}

func newDebugServer(addr string, sess *sabr.Session, tr *transport.Transport, logger *slog.Logger) *debugServer {
	router := chi.NewRouter()
	router.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		snap := debugSnapshot{Stats: sess.Stats(), HostFallbackCount: tr.FallbackCount()}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			logger.Warn("debug: encoding stats", slog.String("error", err.Error()))
		}
	})
	router.Get("/trace", func(w http.ResponseWriter, _ *http.Request) {
		entries, err := sess.Trace()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			logger.Warn("debug: encoding trace", slog.String("error", err.Error()))
		}
	})

	return &debugServer{
		httpServer: &http.Server{Addr: addr, Handler: router},
		logger:     logger,
	}
}

// start runs the server in a background goroutine. A bind failure only logs
// a warning rather than failing the download: the debug endpoint is an
// opt-in aid, not load-bearing for spec.md's download semantics.
func (d *debugServer) start() {
	go func() {
		if err := d.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.Warn("debug server stopped", slog.String("error", err.Error()))
		}
	}()
}

func (d *debugServer) stop(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = d.httpServer.Shutdown(shutdownCtx)
}
