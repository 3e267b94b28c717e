package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	service "github.com/okian/accolade/internal/app"
	"github.com/okian/accolade/pkg/metrics"
)

// HealthDependencies defines what the health check inspects.
type HealthDependencies interface {
	Ping(ctx context.Context) error
	CheckAssets(ctx context.Context) (service.AssetReport, error)
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps HealthDependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status   string              `json:"status"`
	Database string              `json:"database"`
	Assets   service.AssetReport `json:"assets"`
	Error    string              `json:"error,omitempty"`
}

// HandleHealth handles GET /healthz. It answers 503 when the store is
// unreachable or rendering assets are missing.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK

	if err := h.deps.Ping(r.Context()); err != nil {
		resp.Status, resp.Database, resp.Error = "degraded", "unreachable", err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	report, err := h.deps.CheckAssets(r.Context())
	resp.Assets = report
	switch {
	case err != nil:
		resp.Status, resp.Error = "degraded", err.Error()
		status = http.StatusServiceUnavailable
	case !report.OK():
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// MetricsHandler serves the award metrics registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
