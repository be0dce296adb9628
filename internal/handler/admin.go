package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"redcode-api/internal/cache"
	"redcode-api/pkg/response"
)

// StoreInspector exposes record store diagnostics.
type StoreInspector interface {
	StoreInfo(ctx context.Context) (map[string]interface{}, error)
}

// SweepRunner triggers a liveness sweep on demand.
type SweepRunner interface {
	RunNow(ctx context.Context) (int, error)
}

// AdminHandler serves the X-Login-Key protected admin endpoints.
type AdminHandler struct {
	store     StoreInspector
	cache     cache.Cache
	sweeper   SweepRunner
	storeType string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler. cache and sweeper may be nil.
func NewAdminHandler(store StoreInspector, c cache.Cache, sweeper SweepRunner, storeType string) *AdminHandler {
	return &AdminHandler{
		store:     store,
		cache:     c,
		sweeper:   sweeper,
		storeType: storeType,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["store_type"] = h.storeType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	if info, err := h.store.StoreInfo(ctx); err == nil {
		info["status"] = "connected"
		stats["store"] = info
	} else {
		stats["store"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	if h.cache != nil {
		stats["cache"] = h.cache.Stats()
	} else {
		stats["cache"] = map[string]interface{}{"status": "not_configured"}
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// Sweep handles POST /api/admin/sweep
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	if h.sweeper == nil {
		response.Error(w, toAPIError(errSweeperDisabled))
		return
	}

	demoted, err := h.sweeper.RunNow(r.Context())
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}

	response.OK(w, map[string]interface{}{
		"demoted": demoted,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
