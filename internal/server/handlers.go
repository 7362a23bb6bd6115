package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/harrier/internal/version"
)

type handlers struct {
	cfg       Config
	log       zerolog.Logger
	startedAt time.Time
}

func newHandlers(cfg Config, log zerolog.Logger) *handlers {
	return &handlers{
		cfg:       cfg,
		log:       log,
		startedAt: time.Now(),
	}
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// health answers any request with the fixed process identity object.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"service":                "harrier",
		"version":                version.Version,
		"credentials_configured": h.cfg.HasCredentials,
	})
}

// systemStatus reports process uptime, host resource usage, and trust
// database integrity.
func (h *handlers) systemStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
	}

	if h.cfg.TrustDB != nil {
		if err := h.cfg.TrustDB.HealthCheck(r.Context()); err != nil {
			h.log.Error().Err(err).Msg("Trust database health check failed")
			status["database"] = "unhealthy"
		} else {
			status["database"] = "ok"
		}
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		status["memory_used_percent"] = vm.UsedPercent
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status["cpu_percent"] = percents[0]
	}

	h.writeJSON(w, http.StatusOK, status)
}

// trustScores exposes the current trust ledger snapshot.
func (h *handlers) trustScores(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.cfg.Trust.Snapshot())
}

type networkStatus struct {
	Name    string `json:"name"`
	ChainID int64  `json:"chain_id"`
	Live    bool   `json:"live"`
	Signing bool   `json:"signing"`
}

// networks reports per-network session state, including networks that
// failed to initialize.
func (h *handlers) networks(w http.ResponseWriter, r *http.Request) {
	out := make([]networkStatus, 0, len(h.cfg.Networks))
	for _, netCfg := range h.cfg.Networks {
		status := networkStatus{Name: netCfg.Name, ChainID: netCfg.ChainID}
		if session, ok := h.cfg.Registry.Get(netCfg.Name); ok {
			status.Live = true
			status.Signing = session.CanStrike()
		}
		out = append(out, status)
	}
	h.writeJSON(w, http.StatusOK, out)
}
