package api

import (
	"context"
	"net/http"
	"time"

	apperrors "raccoon/internal/errors"
	"raccoon/internal/logger"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

func HealthHandler(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := pinger.PingContext(ctx); err != nil {
			logger.WarnLogger.WithError(err).Warn("Health check: database unreachable")
			writeError(w, r, apperrors.NewHTTPError(http.StatusServiceUnavailable, "database unavailable"))
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	}
}
