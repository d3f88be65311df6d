// Package v1handler implements the v1 JSON API over the auditor service.
package v1handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"driveaudit/internal/auditor"
	"driveaudit/pkg/logger"
	"driveaudit/pkg/serrors"

	"go.uber.org/zap"
)

// DefaultLimit is the page size used when the client does not send one.
const DefaultLimit = 20

// MaxLimit caps the page size a client may request.
const MaxLimit = 100

// Deps holds the services the handlers delegate to.
type Deps struct {
	Auditor auditor.Auditor
}

// Handler serves the v1 routes.
type Handler struct {
	deps Deps
}

// New returns a Handler backed by the given dependencies.
func New(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// Routes registers every v1 endpoint on the given mux. The mux is expected to
// be mounted behind the security middleware.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/scans", h.CreateScan)
	mux.HandleFunc("GET /v1/scans", h.ListScans)
	mux.HandleFunc("GET /v1/scans/{id}", h.GetScan)
	mux.HandleFunc("GET /v1/scans/{id}/files", h.ListScanFiles)
	mux.HandleFunc("POST /v1/integrated-scans", h.CreateIntegratedScan)
	mux.HandleFunc("GET /v1/integrated-scans/{id}", h.GetIntegratedScan)
	mux.HandleFunc("POST /v1/integrated-scans/{id}/cancel", h.CancelIntegratedScan)
}

// errorResponse is the JSON error envelope shared by all endpoints.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// respondError maps semantic error kinds onto HTTP status codes. Unknown
// errors are logged and reported as 500 without leaking internals.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, serrors.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, serrors.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, serrors.ErrPlanLimit):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, serrors.ErrDelegation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, serrors.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, serrors.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		logger.Error(ctx, "request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseLimit reads the 'limit' query parameter, applying the default and the
// upper bound.
func parseLimit(r *http.Request) (uint, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return DefaultLimit, nil
	}

	limit, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || limit == 0 {
		return 0, serrors.With(serrors.ErrBadRequest, "invalid limit %q", raw)
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return uint(limit), nil
}
