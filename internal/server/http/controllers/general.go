package controllers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	metrics "github.com/rcrowley/go-metrics"

	"github.com/rzbill/devlog/internal/runtime"
)

// GeneralController handles general HTTP endpoints like health and metrics.
type GeneralController struct {
	rt *runtime.Runtime
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers general routes with the given router.
//
// This method sets up HTTP endpoints for:
// - Health checks (/v1/healthz)
// - Metrics snapshot (/v1/metrics)
func (c *GeneralController) RegisterRoutes(router *httprouter.Router) {
	router.GET("/v1/healthz", c.handleHealth)
	router.GET("/v1/metrics", c.handleMetrics)
}

// handleHealth returns the health status of the service.
//
// Returns 200 OK with {"status": "ok"} if healthy, 503 Service Unavailable otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleMetrics writes every registered instrument (per-log counters, storage
// timers and histograms, reclaim counters) as one JSON object.
func (c *GeneralController) handleMetrics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	metrics.WriteJSONOnce(c.rt.Metrics(), w)
}
