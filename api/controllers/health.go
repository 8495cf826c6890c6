package controllers

import (
	"context"
	"net/http"

	"github.com/pharmakit/pos-terminal/api/responses"
	"github.com/pharmakit/pos-terminal/pkg/config"
	pkgerrors "github.com/pharmakit/pos-terminal/pkg/errors"
	"github.com/pharmakit/pos-terminal/pkg/logger"
)

const envHeader = "X-PosTerm-Env"

// Pinger is satisfied by the optional cache client.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness. cache may be nil when the terminal runs
// without Redis; the backend is deliberately not probed here, an unreachable
// backend degrades per request instead of failing the whole terminal.
func HealthReady(cfg *config.Config, logg *logger.Logger, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache unreachable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
