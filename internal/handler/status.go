package handler

import (
	"net/http"
	"runtime"

	"go.uber.org/zap"

	"github.com/dmarukhin/tasknote-api/internal/repo"
	"github.com/dmarukhin/tasknote-api/pkg/respond"
)

type StatusHandler struct {
	store  repo.Store
	logger *zap.Logger
}

func NewStatusHandler(store repo.Store, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{store: store, logger: logger}
}

type statusReport struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	AllocBytes uint64 `json:"alloc_bytes"`
	SysBytes   uint64 `json:"sys_bytes"`
	NumGC      uint32 `json:"num_gc"`
	Goroutines int    `json:"goroutines"`
}

// Status reports process memory/GC stats plus database connectivity.
// Liveness probes key off the status code: 503 when the store is down.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	report := statusReport{
		Status:     "ok",
		Database:   "ok",
		AllocBytes: mem.Alloc,
		SysBytes:   mem.Sys,
		NumGC:      mem.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}

	code := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("status ping failed", zap.Error(err))
		report.Status = "degraded"
		report.Database = "unreachable"
		code = http.StatusServiceUnavailable
	}

	respond.JSON(w, r, code, report)
}
