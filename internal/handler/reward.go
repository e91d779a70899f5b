package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mhollis/chorequest/internal/auth"
	"github.com/mhollis/chorequest/internal/model"
	"github.com/mhollis/chorequest/internal/points"
	"github.com/mhollis/chorequest/internal/push"
	"github.com/mhollis/chorequest/internal/store"
	"github.com/mhollis/chorequest/internal/websocket"
)

type RewardHandler struct {
	rewards  *store.RewardStore
	settings *store.SettingsStore
	notes    *store.NotificationStore
	service  *points.Service
	notifier *push.Notifier
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewRewardHandler(
	rs *store.RewardStore,
	sets *store.SettingsStore,
	ns *store.NotificationStore,
	svc *points.Service,
	notifier *push.Notifier,
	hub *websocket.Hub,
	logger *slog.Logger,
) *RewardHandler {
	return &RewardHandler{
		rewards:  rs,
		settings: sets,
		notes:    ns,
		service:  svc,
		notifier: notifier,
		hub:      hub,
		logger:   logger,
	}
}

func (h *RewardHandler) broadcast(householdID int64, ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, ev)
	}
}

type rewardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PointCost   int    `json:"point_cost"`
	Stock       *int   `json:"stock"`
	Active      *bool  `json:"active"`
}

func (req *rewardRequest) validate() string {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return "title is required"
	}
	if req.PointCost < 0 {
		return "point_cost cannot be negative"
	}
	if req.Stock != nil && *req.Stock < 0 {
		return "stock cannot be negative"
	}
	return ""
}

// Create handles POST /api/rewards. Parent only.
func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	householdID := auth.HouseholdID(r.Context())
	reward, err := h.rewards.Create(householdID, req.Title, req.Description, req.Category, req.PointCost, req.Stock, active)
	if err != nil {
		h.logger.Error("create reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create reward")
		return
	}

	h.broadcast(householdID, websocket.NewEvent("reward", "created", reward.ID, nil))
	writeJSON(w, http.StatusCreated, reward)
}

// List handles GET /api/rewards.
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.List(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("list rewards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

// Update handles PUT /api/rewards/{id}. Parent only.
func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	reward, ok := h.loadReward(w, r)
	if !ok {
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	active := reward.Active
	if req.Active != nil {
		active = *req.Active
	}

	updated, err := h.rewards.Update(reward.ID, req.Title, req.Description, req.Category, req.PointCost, req.Stock, active)
	if err != nil {
		h.logger.Error("update reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update reward")
		return
	}

	h.broadcast(reward.HouseholdID, websocket.NewEvent("reward", "updated", reward.ID, nil))
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/rewards/{id}. Parent only.
func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	reward, ok := h.loadReward(w, r)
	if !ok {
		return
	}
	if err := h.rewards.Delete(reward.ID); err != nil {
		h.logger.Error("delete reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete reward")
		return
	}
	h.broadcast(reward.HouseholdID, websocket.NewEvent("reward", "deleted", reward.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

type claimRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
}

// Claim handles POST /api/rewards/{id}/claim for the active profile.
func (h *RewardHandler) Claim(w http.ResponseWriter, r *http.Request) {
	reward, ok := h.loadReward(w, r)
	if !ok {
		return
	}

	ac, _ := auth.FromContext(r.Context())
	if ac.ProfileID == 0 {
		writeError(w, http.StatusConflict, "select a profile first")
		return
	}

	// The body is optional; it only carries the idempotency key.
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	claim, balance, err := h.service.Claim(reward.ID, ac.ProfileID, req.IdempotencyKey, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.broadcast(reward.HouseholdID, websocket.NewEvent("claim", "created", claim.ID, map[string]any{
		"reward_id":  reward.ID,
		"profile_id": ac.ProfileID,
	}))
	h.notifier.NotifyParents(reward.HouseholdID, push.Payload{
		Title: "Reward claimed",
		Body:  reward.Title,
		URL:   "/claims",
		Tag:   "claim",
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"claim":   claim,
		"balance": balance,
	})
}

// ListClaims handles GET /api/claims with optional pending filter.
func (h *RewardHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	var claims []model.RewardClaim
	var err error
	if r.URL.Query().Get("pending") == "true" {
		claims, err = h.rewards.ListPendingClaims(householdID)
	} else {
		ac, _ := auth.FromContext(r.Context())
		if ac.ProfileID == 0 {
			writeError(w, http.StatusConflict, "select a profile first")
			return
		}
		claims, err = h.rewards.ListClaimsByProfile(ac.ProfileID)
	}
	if err != nil {
		h.logger.Error("list claims", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list claims")
		return
	}
	if claims == nil {
		claims = []model.RewardClaim{}
	}
	writeJSON(w, http.StatusOK, claims)
}

type resolveRequest struct {
	Reason string `json:"reason"`
}

// Approve handles POST /api/claims/{id}/approve. Parent only.
func (h *RewardHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, true)
}

// Reject handles POST /api/claims/{id}/reject. Parent only.
func (h *RewardHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, false)
}

func (h *RewardHandler) resolve(w http.ResponseWriter, r *http.Request, approve bool) {
	claimID := r.PathValue("id")
	if claimID == "" {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	existing, err := h.rewards.GetClaim(claimID)
	if err != nil {
		h.logger.Error("get claim", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get claim")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "claim not found")
		return
	}
	reward, err := h.rewards.GetByID(existing.RewardID)
	if err != nil || reward == nil || reward.HouseholdID != householdID {
		writeError(w, http.StatusNotFound, "claim not found")
		return
	}

	ac, _ := auth.FromContext(r.Context())

	var claim *model.RewardClaim
	action := "approved"
	if approve {
		claim, err = h.service.Approve(claimID, ac.ProfileID, time.Now())
	} else {
		var req resolveRequest
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&req)
		}
		claim, err = h.service.Reject(claimID, ac.ProfileID, strings.TrimSpace(req.Reason), time.Now())
		action = "rejected"
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	title := "Reward approved: " + reward.Title
	body := "Enjoy!"
	if !approve {
		title = "Reward claim rejected: " + reward.Title
		body = claim.RejectReason
	}
	if _, err := h.notes.Create(claim.ProfileID, model.NotifTypeClaimResolved, title, body); err != nil {
		h.logger.Error("create notification", "error", err)
	}
	h.notifier.NotifyProfile(claim.ProfileID, push.Payload{
		Title: title,
		Body:  body,
		URL:   "/rewards",
		Tag:   "claim-" + claim.ID,
	})

	h.broadcast(householdID, websocket.NewEvent("claim", action, claim.ID, map[string]any{
		"reward_id":  reward.ID,
		"profile_id": claim.ProfileID,
	}))
	writeJSON(w, http.StatusOK, claim)
}

// Balance handles GET /api/points/balance for the active profile.
func (h *RewardHandler) Balance(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if ac.ProfileID == 0 {
		writeError(w, http.StatusConflict, "select a profile first")
		return
	}

	balance, err := h.service.Balance(ac.ProfileID)
	if err != nil {
		h.logger.Error("get balance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get balance")
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// Leaderboard handles GET /api/points/leaderboard.
func (h *RewardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	enabled, err := h.settings.GetBool(householdID, store.SettingLeaderboardEnabled)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check settings")
		return
	}
	if !enabled {
		writeError(w, http.StatusNotFound, "leaderboard is disabled")
		return
	}

	board, err := h.service.Leaderboard(householdID)
	if err != nil {
		h.logger.Error("leaderboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build leaderboard")
		return
	}
	if board == nil {
		board = []model.PointBalance{}
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *RewardHandler) loadReward(w http.ResponseWriter, r *http.Request) (*model.Reward, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	reward, err := h.rewards.GetByID(id)
	if err != nil {
		h.logger.Error("get reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get reward")
		return nil, false
	}
	if reward == nil || reward.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "reward not found")
		return nil, false
	}
	return reward, true
}
