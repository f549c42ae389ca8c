package handler

import (
	"net/http"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Scheduler string            `json:"scheduler"`
	Services  map[string]string `json:"services"`
}

// Health returns the health status of the service and its backends
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	services := make(map[string]string)
	status := "healthy"

	if err := h.db.HealthCheck(ctx); err != nil {
		services["postgres"] = "unhealthy"
		status = "degraded"
	} else {
		services["postgres"] = "healthy"
	}

	if err := h.rdb.HealthCheck(ctx); err != nil {
		services["redis"] = "unhealthy"
		status = "degraded"
	} else {
		services["redis"] = "healthy"
	}

	schedStatus := "disabled"
	if h.cfg.Scheduler.Enabled {
		schedStatus = "enabled"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Scheduler: schedStatus,
		Services:  services,
	})
}

// Ready returns whether the service is ready to accept requests
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.db.HealthCheck(ctx); err != nil {
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}

	if err := h.rdb.HealthCheck(ctx); err != nil {
		http.Error(w, "redis not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
