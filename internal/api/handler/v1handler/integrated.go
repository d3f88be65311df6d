package v1handler

import (
	"encoding/json"
	"net/http"

	"driveaudit/pkg/domain"

	"github.com/google/uuid"
)

// CreateIntegratedScanRequest is the payload for starting a multi-account job.
type CreateIntegratedScanRequest struct {
	// TargetUsers is the ordered list of account emails to scan.
	TargetUsers []string `json:"targetUsers"`
}

// CreateIntegratedScan starts a sequential scan over multiple accounts.
func (h *Handler) CreateIntegratedScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateIntegratedScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")

		return
	}

	job, err := h.deps.Auditor.StartIntegratedScan(ctx, GetOrgIDFromContext(ctx), req.TargetUsers)
	if err != nil {
		respondError(ctx, w, err)

		return
	}

	writeJSON(w, http.StatusCreated, job)
}

// GetIntegratedScan returns the current state of one job, including
// per-account results and progress.
func (h *Handler) GetIntegratedScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")

		return
	}

	job, err := h.deps.Auditor.IntegratedScanStatus(ctx, GetOrgIDFromContext(ctx), domain.JobID(id))
	if err != nil {
		respondError(ctx, w, err)

		return
	}

	writeJSON(w, http.StatusOK, job)
}

// CancelIntegratedScan requests cooperative cancellation of a job. Cancelling
// a job that already reached a terminal status returns it unchanged.
func (h *Handler) CancelIntegratedScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")

		return
	}

	job, err := h.deps.Auditor.CancelIntegratedScan(ctx, GetOrgIDFromContext(ctx), domain.JobID(id))
	if err != nil {
		respondError(ctx, w, err)

		return
	}

	writeJSON(w, http.StatusOK, job)
}
