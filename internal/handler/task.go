package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mhollis/chorequest/internal/auth"
	"github.com/mhollis/chorequest/internal/model"
	"github.com/mhollis/chorequest/internal/push"
	"github.com/mhollis/chorequest/internal/store"
	"github.com/mhollis/chorequest/internal/task"
	"github.com/mhollis/chorequest/internal/websocket"
)

type TaskHandler struct {
	tasks    *store.TaskStore
	profiles *store.ProfileStore
	settings *store.SettingsStore
	notes    *store.NotificationStore
	service  *task.Service
	notifier *push.Notifier
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewTaskHandler(
	ts *store.TaskStore,
	ps *store.ProfileStore,
	sets *store.SettingsStore,
	ns *store.NotificationStore,
	svc *task.Service,
	notifier *push.Notifier,
	hub *websocket.Hub,
	logger *slog.Logger,
) *TaskHandler {
	return &TaskHandler{
		tasks:    ts,
		profiles: ps,
		settings: sets,
		notes:    ns,
		service:  svc,
		notifier: notifier,
		hub:      hub,
		logger:   logger,
	}
}

func (h *TaskHandler) broadcast(householdID int64, ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, ev)
	}
}

type taskRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Points        *int       `json:"points"`
	DueDate       *time.Time `json:"due_date"`
	Recurrence    string     `json:"recurrence"`
	RequiresProof bool       `json:"requires_proof"`
	AssigneeIDs   []int64    `json:"assignee_ids"`
}

func (h *TaskHandler) params(r *http.Request, req taskRequest) (store.CreateParams, string) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return store.CreateParams{}, "title is required"
	}
	if !task.ValidRecurrence(req.Recurrence) {
		return store.CreateParams{}, "recurrence must be daily, weekly, or monthly"
	}

	householdID := auth.HouseholdID(r.Context())
	points := 0
	if req.Points != nil {
		if *req.Points < 0 {
			return store.CreateParams{}, "points cannot be negative"
		}
		points = *req.Points
	} else if n, err := h.settings.GetInt(householdID, store.SettingDefaultTaskPoints); err == nil {
		points = n
	}

	for _, pid := range req.AssigneeIDs {
		profile, err := h.profiles.GetByID(pid)
		if err != nil || profile == nil || profile.HouseholdID != householdID {
			return store.CreateParams{}, "assignee not found"
		}
	}

	requiresProof := req.RequiresProof
	if !requiresProof {
		if forced, err := h.settings.GetBool(householdID, store.SettingRequirePhotoProof); err == nil && forced {
			requiresProof = true
		}
	}

	return store.CreateParams{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Points:        points,
		DueDate:       req.DueDate,
		Recurrence:    req.Recurrence,
		RequiresProof: requiresProof,
		AssigneeIDs:   req.AssigneeIDs,
	}, ""
}

// Create handles POST /api/tasks. Parent only.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	p, msg := h.params(r, req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	householdID := auth.HouseholdID(r.Context())
	created, err := h.tasks.Create(householdID, p)
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	h.broadcast(householdID, websocket.NewEvent("task", "created", created.ID, nil))
	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /api/tasks with optional status and assignee filters.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	var tasks []model.Task
	var err error
	switch {
	case r.URL.Query().Get("status") != "":
		status := r.URL.Query().Get("status")
		if !task.ValidStatus(status) {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		tasks, err = h.tasks.ListByStatus(householdID, status)
	case r.URL.Query().Get("assignee") != "":
		pid, perr := strconv.ParseInt(r.URL.Query().Get("assignee"), 10, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid assignee")
			return
		}
		tasks, err = h.tasks.ListByAssignee(householdID, pid)
	default:
		tasks, err = h.tasks.List(householdID)
	}
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Update handles PUT /api/tasks/{id}. Parent only.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	t, ok := h.loadTask(w, r)
	if !ok {
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p, msg := h.params(r, req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := h.tasks.Update(t.ID, p)
	if err != nil {
		h.logger.Error("update task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	h.broadcast(t.HouseholdID, websocket.NewEvent("task", "updated", t.ID, nil))
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/tasks/{id}. Parent only.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	t, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	if err := h.tasks.Delete(t.ID); err != nil {
		h.logger.Error("delete task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}
	h.broadcast(t.HouseholdID, websocket.NewEvent("task", "deleted", t.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status   string `json:"status"`
	ProofURL string `json:"proof_url"`
}

// SetStatus handles POST /api/tasks/{id}/status: the state machine edge.
func (h *TaskHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	t, ok := h.loadTask(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !task.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	if ac.ProfileID == 0 {
		writeError(w, http.StatusConflict, "select a profile first")
		return
	}
	actor := task.Actor{ProfileID: ac.ProfileID, IsParent: auth.IsParent(r.Context())}

	result, err := h.service.Advance(t.ID, actor, req.Status, req.ProofURL, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.broadcast(t.HouseholdID, websocket.NewEvent("task", "updated", t.ID, map[string]any{
		"status": result.Task.Status,
	}))
	h.afterTransition(t, result, actor)

	writeJSON(w, http.StatusOK, result)
}

// afterTransition files in-app notifications and pushes for the edges that
// someone is waiting on.
func (h *TaskHandler) afterTransition(t *model.Task, result *task.AdvanceResult, actor task.Actor) {
	switch result.Task.Status {
	case task.StatusReview:
		profiles, err := h.profiles.List(t.HouseholdID)
		if err != nil {
			h.logger.Error("list profiles", "error", err)
		}
		for _, p := range profiles {
			if p.Kind != model.ProfileKindParent {
				continue
			}
			if _, err := h.notes.Create(p.ID, model.NotifTypeReviewSubmitted, "Chore ready for review", t.Title); err != nil {
				h.logger.Error("create notification", "error", err)
			}
		}
		h.notifier.NotifyParents(t.HouseholdID, push.Payload{
			Title: "Chore ready for review",
			Body:  t.Title,
			URL:   "/review",
			Tag:   "task-review",
		})
	case task.StatusDone:
		completedBy := actor.ProfileID
		if result.Task.SubmittedBy != nil {
			completedBy = *result.Task.SubmittedBy
		}
		if _, err := h.notes.Create(completedBy, model.NotifTypeTaskApproved, "Chore approved", t.Title); err != nil {
			h.logger.Error("create notification", "error", err)
		}
		for _, b := range result.NewBadges {
			if _, err := h.notes.Create(completedBy, model.NotifTypeBadgeEarned, "Badge earned: "+b.Name, b.Description); err != nil {
				h.logger.Error("create notification", "error", err)
			}
			h.broadcast(t.HouseholdID, websocket.NewEvent("badge", "earned", b.Code, map[string]any{
				"profile_id": completedBy,
			}))
		}
	}
}

func (h *TaskHandler) loadTask(w http.ResponseWriter, r *http.Request) (*model.Task, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	t, err := h.tasks.GetByID(id)
	if err != nil {
		h.logger.Error("get task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return nil, false
	}
	if t == nil || t.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "task not found")
		return nil, false
	}
	return t, true
}
