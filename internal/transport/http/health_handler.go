package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/decoder"
)

// HealthHandler serves liveness and cache status.
type HealthHandler struct {
	started time.Time
	version string
	stats   func() decoder.CacheStats
}

// NewHealthHandler creates the handler. stats may be nil.
func NewHealthHandler(version string, stats func() decoder.CacheStats) *HealthHandler {
	return &HealthHandler{started: time.Now(), version: version, stats: stats}
}

type healthResponse struct {
	Status  string             `json:"status"`
	Version string             `json:"version"`
	Uptime  string             `json:"uptime"`
	Cache   *decoder.CacheStats `json:"cache,omitempty"`
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
	}
	if h.stats != nil {
		stats := h.stats()
		resp.Cache = &stats
	}
	render.JSON(w, r, resp)
}
