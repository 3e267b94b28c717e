package api

import (
	"context"
	"fmt"
	"net/http"

	service "github.com/okian/accolade/internal/app"
)

// BatchDependencies defines the batch operations that can be triggered over HTTP.
type BatchDependencies interface {
	RunBatch(ctx context.Context) (service.Summary, error)
	RegenerateMissing(ctx context.Context) (service.Summary, error)
}

// BatchHandler triggers batches on demand.
type BatchHandler struct {
	deps BatchDependencies
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(deps BatchDependencies) *BatchHandler {
	return &BatchHandler{deps: deps}
}

// HandleRunBatch handles POST /v1/batch?kind=awards|regenerate and returns
// the run summary. The run uses the request context, so a client that
// disconnects cancels dispatch of the remaining units.
func (h *BatchHandler) HandleRunBatch(w http.ResponseWriter, r *http.Request) {
	var (
		sum service.Summary
		err error
	)
	switch kind := r.URL.Query().Get("kind"); kind {
	case "", service.KindAwards:
		sum, err = h.deps.RunBatch(r.Context())
	case service.KindRegenerate:
		sum, err = h.deps.RegenerateMissing(r.Context())
	default:
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: unknown kind %q", ErrBadRequest, kind))
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
