package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mhollis/chorequest/internal/auth"
	"github.com/mhollis/chorequest/internal/storage"
	"github.com/mhollis/chorequest/internal/store"
)

type ProofHandler struct {
	proofs *storage.ProofStore
	tasks  *store.TaskStore
	logger *slog.Logger
}

func NewProofHandler(ps *storage.ProofStore, ts *store.TaskStore, logger *slog.Logger) *ProofHandler {
	return &ProofHandler{proofs: ps, tasks: ts, logger: logger}
}

// Upload handles POST /api/tasks/{id}/proof. The body is the raw image; the
// returned URL goes into the later status submission.
func (h *ProofHandler) Upload(w http.ResponseWriter, r *http.Request) {
	taskID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	t, err := h.tasks.GetByID(taskID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if t == nil || t.HouseholdID != householdID {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	url, err := h.proofs.Upload(r.Context(), householdID, taskID, r.Header.Get("Content-Type"), r.Body)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "photo storage is not configured")
		return
	case errors.Is(err, storage.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, "image must be jpeg, png, or webp")
		return
	case errors.Is(err, storage.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "image exceeds 10 MiB")
		return
	case err != nil:
		h.logger.Error("upload proof", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to upload proof")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"proof_url": url})
}
