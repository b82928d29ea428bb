package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/mem"
)

// HealthHandler reports liveness together with basic host statistics.
type HealthHandler struct {
	started time.Time
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{started: time.Now()}
}

// Get answers 200 as long as the process is serving. Host statistics are best effort.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	}

	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		resp["memUsedPercent"] = vm.UsedPercent
	} else {
		log.Debug().Err(err).Msg("Could not read host memory stats")
	}

	writeJSON(w, http.StatusOK, resp)
}
