package health

import (
	"context"
	"net/http"
	"time"

	"github.com/pulsewall/pulsewall/internal/infrastructure/json"
)

var startTime = time.Now()

type Handler struct {
	// ping probes the backing store; nil means liveness-only deployment
	ping func(ctx context.Context) error
}

func NewHandler(ping func(ctx context.Context) error) *Handler {
	return &Handler{ping: ping}
}

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	json.Write(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	})
}

func (h *Handler) GetReady(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.ping(ctx); err != nil {
			json.Write(w, http.StatusServiceUnavailable, healthResponse{
				Status:    "unhealthy",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
				Uptime:    time.Since(startTime).Round(time.Second).String(),
			})
			return
		}
	}

	json.Write(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	})
}
