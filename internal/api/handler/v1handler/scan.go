package v1handler

import (
	"encoding/json"
	"net/http"

	"driveaudit/pkg/domain"

	"github.com/google/uuid"
)

// CreateScanRequest is the payload for starting a single-account scan.
type CreateScanRequest struct {
	// Subject is the email address of the account to scan.
	Subject string `json:"subject"`
}

// ScanList is a page of scans with an opaque continuation cursor.
type ScanList struct {
	Items      []domain.Scan `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// ScanFileList is a page of scored items with an opaque continuation cursor.
type ScanFileList struct {
	Items      []domain.ScanFile `json:"items"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

// CreateScan starts a scan of one account's storage.
func (h *Handler) CreateScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")

		return
	}

	scan, err := h.deps.Auditor.StartScan(ctx, GetOrgIDFromContext(ctx), req.Subject)
	if err != nil {
		respondError(ctx, w, err)

		return
	}

	writeJSON(w, http.StatusCreated, scan)
}

// GetScan returns the current state of one scan.
func (h *Handler) GetScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scan id")

		return
	}

	scan, err := h.deps.Auditor.ScanStatus(ctx, GetOrgIDFromContext(ctx), domain.ScanID(id))
	if err != nil {
		respondError(ctx, w, err)

		return
	}

	writeJSON(w, http.StatusOK, scan)
}

// ListScans returns a page of the organization's scans, newest first.
func (h *Handler) ListScans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := parseLimit(r)
	if err != nil {
		respondError(ctx, w, err)

		return
	}

	scans, nextCursor, err := h.deps.Auditor.ListScans(ctx,
		GetOrgIDFromContext(ctx),
		r.URL.Query().Get("cursor"),
		limit)
	if err != nil {
		respondError(ctx, w, err)

		return
	}

	if scans == nil {
		scans = []domain.Scan{}
	}
	writeJSON(w, http.StatusOK, ScanList{Items: scans, NextCursor: nextCursor})
}

// ListScanFiles returns a page of scored items for one scan.
func (h *Handler) ListScanFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scan id")

		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		respondError(ctx, w, err)

		return
	}

	files, nextCursor, err := h.deps.Auditor.ListScanFiles(ctx,
		GetOrgIDFromContext(ctx),
		domain.ScanID(id),
		r.URL.Query().Get("cursor"),
		limit)
	if err != nil {
		respondError(ctx, w, err)

		return
	}

	if files == nil {
		files = []domain.ScanFile{}
	}
	writeJSON(w, http.StatusOK, ScanFileList{Items: files, NextCursor: nextCursor})
}
