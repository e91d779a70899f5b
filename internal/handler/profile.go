package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mhollis/chorequest/internal/auth"
	"github.com/mhollis/chorequest/internal/middleware"
	"github.com/mhollis/chorequest/internal/model"
	"github.com/mhollis/chorequest/internal/store"
)

type ProfileHandler struct {
	profiles *store.ProfileStore
	sessions *store.SessionStore
	limiter  *middleware.RateLimiter
	logger   *slog.Logger
}

func NewProfileHandler(ps *store.ProfileStore, ss *store.SessionStore, limiter *middleware.RateLimiter, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: ps, sessions: ss, limiter: limiter, logger: logger}
}

// List handles GET /api/profiles.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("list profiles", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list profiles")
		return
	}
	if profiles == nil {
		profiles = []model.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

type profileRequest struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Color       string `json:"color"`
	AvatarEmoji string `json:"avatar_emoji"`
	SortOrder   int    `json:"sort_order"`
}

// Create handles POST /api/profiles. Parent only.
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Kind == "" {
		req.Kind = model.ProfileKindChild
	}
	if req.Kind != model.ProfileKindChild && req.Kind != model.ProfileKindParent {
		writeError(w, http.StatusBadRequest, "kind must be parent or child")
		return
	}

	taken, err := h.profiles.NameExists(householdID, req.Name, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check name")
		return
	}
	if taken {
		writeError(w, http.StatusConflict, "a profile with this name already exists")
		return
	}

	if req.Color == "" {
		req.Color = "#3B82F6"
	}
	if req.AvatarEmoji == "" {
		req.AvatarEmoji = "😀"
	}

	profile, err := h.profiles.Create(householdID, nil, req.Name, req.Kind, req.Color, req.AvatarEmoji)
	if err != nil {
		h.logger.Error("create profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create profile")
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// Update handles PUT /api/profiles/{id}. Parent only.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.loadProfile(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	taken, err := h.profiles.NameExists(profile.HouseholdID, req.Name, profile.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check name")
		return
	}
	if taken {
		writeError(w, http.StatusConflict, "a profile with this name already exists")
		return
	}

	updated, err := h.profiles.Update(profile.ID, req.Name, req.Color, req.AvatarEmoji, req.SortOrder)
	if err != nil {
		h.logger.Error("update profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/profiles/{id}. Parent only.
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.loadProfile(w, r)
	if !ok {
		return
	}
	if profile.UserID != nil {
		writeError(w, http.StatusConflict, "cannot delete a profile linked to an account")
		return
	}
	if err := h.profiles.Delete(profile.ID); err != nil {
		h.logger.Error("delete profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	IDs []int64 `json:"ids"`
}

// Reorder handles PUT /api/profiles/order. Parent only.
func (h *ProfileHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.profiles.UpdateSortOrder(req.IDs); err != nil {
		h.logger.Error("reorder profiles", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reorder profiles")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pinRequest struct {
	PIN string `json:"pin"`
}

// SetPIN handles PUT /api/profiles/{id}/pin. Parent only. An empty PIN
// clears it.
func (h *ProfileHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.loadProfile(w, r)
	if !ok {
		return
	}

	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.PIN == "" {
		if err := h.profiles.ClearPIN(profile.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to clear PIN")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if len(req.PIN) < 4 || len(req.PIN) > 8 {
		writeError(w, http.StatusBadRequest, "PIN must be 4-8 digits")
		return
	}
	for _, c := range req.PIN {
		if c < '0' || c > '9' {
			writeError(w, http.StatusBadRequest, "PIN must be 4-8 digits")
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.profiles.SetPIN(profile.ID, string(hash)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set PIN")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectRequest struct {
	PIN string `json:"pin"`
}

// Select handles POST /api/profiles/{id}/select: switches the session's
// active profile, checking the PIN when one is set. PIN attempts are rate
// limited per session.
func (h *ProfileHandler) Select(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	profile, ok := h.loadProfile(w, r)
	if !ok {
		return
	}

	hash, err := h.profiles.GetPINHash(profile.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if hash != "" {
		key := "pin:" + middleware.RealIP(r)
		if !h.limiter.Allow(key, 10, 5*time.Minute) {
			writeError(w, http.StatusTooManyRequests, "too many PIN attempts")
			return
		}

		var req selectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.PIN)) != nil {
			writeError(w, http.StatusUnauthorized, "incorrect PIN")
			return
		}
	}

	if err := h.sessions.SetActiveProfile(ac.SessionID, &profile.ID); err != nil {
		h.logger.Error("set active profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to switch profile")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// loadProfile fetches the path profile and verifies household scope.
func (h *ProfileHandler) loadProfile(w http.ResponseWriter, r *http.Request) (*model.Profile, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	profile, err := h.profiles.GetByID(id)
	if err != nil {
		h.logger.Error("get profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get profile")
		return nil, false
	}
	if profile == nil || profile.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "profile not found")
		return nil, false
	}
	return profile, true
}
