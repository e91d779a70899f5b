package handler

import (
	"log/slog"
	"net/http"

	"github.com/mhollis/chorequest/internal/auth"
	"github.com/mhollis/chorequest/internal/model"
	"github.com/mhollis/chorequest/internal/store"
)

type NotificationHandler struct {
	notes    *store.NotificationStore
	profiles *store.ProfileStore
	logger   *slog.Logger
}

func NewNotificationHandler(ns *store.NotificationStore, ps *store.ProfileStore, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notes: ns, profiles: ps, logger: logger}
}

// List handles GET /api/notifications for the active profile. ?unread=true
// filters to unread only.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if ac.ProfileID == 0 {
		writeError(w, http.StatusConflict, "select a profile first")
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	notes, err := h.notes.ListByProfile(ac.ProfileID, unreadOnly)
	if err != nil {
		h.logger.Error("list notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if notes == nil {
		notes = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notes)
}

// MarkRead handles POST /api/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	note, err := h.notes.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get notification")
		return
	}
	if note == nil || note.ProfileID != ac.ProfileID {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}

	if err := h.notes.MarkRead(id); err != nil {
		h.logger.Error("mark notification read", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to mark read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
