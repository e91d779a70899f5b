package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mhollis/chorequest/internal/auth"
	"github.com/mhollis/chorequest/internal/email"
	"github.com/mhollis/chorequest/internal/model"
	"github.com/mhollis/chorequest/internal/store"
)

type HouseholdHandler struct {
	households *store.HouseholdStore
	settings   *store.SettingsStore
	email      *email.Client
	logger     *slog.Logger
}

func NewHouseholdHandler(hs *store.HouseholdStore, sets *store.SettingsStore, ec *email.Client, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{households: hs, settings: sets, email: ec, logger: logger}
}

// Get handles GET /api/household.
func (h *HouseholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	household, err := h.households.GetByID(auth.HouseholdID(r.Context()))
	if err != nil || household == nil {
		writeError(w, http.StatusInternalServerError, "failed to get household")
		return
	}
	// The join code is a door key; only parents get to see it.
	if !auth.IsParent(r.Context()) {
		household.JoinCode = ""
	}
	writeJSON(w, http.StatusOK, household)
}

type householdRequest struct {
	Name string `json:"name"`
}

// Update handles PUT /api/household. Parent only.
func (h *HouseholdHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req householdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	household, err := h.households.Update(auth.HouseholdID(r.Context()), req.Name)
	if err != nil {
		h.logger.Error("update household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update household")
		return
	}
	writeJSON(w, http.StatusOK, household)
}

// RotateJoinCode handles POST /api/household/rotate-code. Parent only.
func (h *HouseholdHandler) RotateJoinCode(w http.ResponseWriter, r *http.Request) {
	household, err := h.households.RotateJoinCode(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("rotate join code", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to rotate join code")
		return
	}
	writeJSON(w, http.StatusOK, household)
}

// ListMembers handles GET /api/household/members.
func (h *HouseholdHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.households.ListMembers(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.HouseholdMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

type memberRoleRequest struct {
	Role string `json:"role"`
}

// UpdateMemberRole handles PUT /api/household/members/{id}. Parent only.
// The path id is the member's user ID.
func (h *HouseholdHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req memberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Role != auth.RoleParent && req.Role != auth.RoleMember {
		writeError(w, http.StatusBadRequest, "role must be parent or member")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	if userID == ac.UserID && req.Role != auth.RoleParent {
		writeError(w, http.StatusConflict, "cannot demote yourself")
		return
	}

	member, err := h.households.UpdateMemberRole(ac.HouseholdID, userID, req.Role)
	if err != nil {
		h.logger.Error("update member role", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update role")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	writeJSON(w, http.StatusOK, member)
}

type inviteRequest struct {
	Email string `json:"email"`
}

// Invite handles POST /api/household/invite. Parent only. Emails the join
// code to a prospective member.
func (h *HouseholdHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "valid email is required")
		return
	}

	household, err := h.households.GetByID(auth.HouseholdID(r.Context()))
	if err != nil || household == nil {
		writeError(w, http.StatusInternalServerError, "failed to get household")
		return
	}

	if !h.email.Configured() {
		writeError(w, http.StatusServiceUnavailable, "email is not configured")
		return
	}
	if err := h.email.SendHouseholdInvite(req.Email, household.Name, household.JoinCode); err != nil {
		h.logger.Error("send invite", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send invite")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "invite sent"})
}

// GetSettings handles GET /api/household/settings.
func (h *HouseholdHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.List(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("list settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list settings")
		return
	}
	if settings == nil {
		settings = []model.Setting{}
	}
	writeJSON(w, http.StatusOK, settings)
}

type settingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

var settableKeys = map[string]bool{
	store.SettingDefaultTaskPoints:  true,
	store.SettingRequirePhotoProof:  true,
	store.SettingTimezone:           true,
	store.SettingLeaderboardEnabled: true,
}

// UpdateSetting handles PUT /api/household/settings. Parent only.
func (h *HouseholdHandler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !settableKeys[req.Key] {
		writeError(w, http.StatusBadRequest, "unknown setting key")
		return
	}
	if err := h.settings.Set(auth.HouseholdID(r.Context()), req.Key, req.Value); err != nil {
		h.logger.Error("set setting", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update setting")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
