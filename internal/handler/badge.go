package handler

import (
	"log/slog"
	"net/http"

	"github.com/mhollis/chorequest/internal/auth"
	"github.com/mhollis/chorequest/internal/badge"
	"github.com/mhollis/chorequest/internal/model"
	"github.com/mhollis/chorequest/internal/store"
)

type BadgeHandler struct {
	badges   *store.BadgeStore
	streaks  *store.StreakStore
	profiles *store.ProfileStore
	logger   *slog.Logger
}

func NewBadgeHandler(bs *store.BadgeStore, ss *store.StreakStore, ps *store.ProfileStore, logger *slog.Logger) *BadgeHandler {
	return &BadgeHandler{badges: bs, streaks: ss, profiles: ps, logger: logger}
}

// Catalog handles GET /api/badges: the full badge definition set.
func (h *BadgeHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, badge.Catalog)
}

// Earned handles GET /api/profiles/{id}/badges.
func (h *BadgeHandler) Earned(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.loadProfile(w, r)
	if !ok {
		return
	}

	earned, err := h.badges.ListEarned(profile.ID)
	if err != nil {
		h.logger.Error("list earned badges", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list badges")
		return
	}
	if earned == nil {
		earned = []model.EarnedBadge{}
	}
	writeJSON(w, http.StatusOK, earned)
}

// Streak handles GET /api/profiles/{id}/streak.
func (h *BadgeHandler) Streak(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.loadProfile(w, r)
	if !ok {
		return
	}

	st, err := h.streaks.Get(profile.ID)
	if err != nil {
		h.logger.Error("get streak", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get streak")
		return
	}

	history, err := h.streaks.History(profile.ID, 30)
	if err != nil {
		h.logger.Error("streak history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get streak")
		return
	}
	if history == nil {
		history = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"streak":  st,
		"history": history,
	})
}

func (h *BadgeHandler) loadProfile(w http.ResponseWriter, r *http.Request) (*model.Profile, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	profile, err := h.profiles.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get profile")
		return nil, false
	}
	if profile == nil || profile.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "profile not found")
		return nil, false
	}
	return profile, true
}
