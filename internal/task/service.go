package task

import (
	"errors"
	"log/slog"
	"time"

	"github.com/mhollis/chorequest/internal/badge"
	"github.com/mhollis/chorequest/internal/model"
	"github.com/mhollis/chorequest/internal/store"
	"github.com/mhollis/chorequest/internal/streak"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrProofRequired  = errors.New("photo proof required before review")
	ErrParentRequired = errors.New("parent approval required")
	ErrNotAssignee    = errors.New("task is assigned to someone else")
)

// Actor identifies who is driving a transition. IsParent reflects the
// server-side role check, never a client claim.
type Actor struct {
	ProfileID int64
	IsParent  bool
}

// AdvanceResult carries the updated task plus whatever the completion side
// effects produced. NewBadges is only populated on review -> done.
type AdvanceResult struct {
	Task      *model.Task
	Streak    *model.StreakState
	NewBadges []model.Badge
}

type Service struct {
	tasks    *store.TaskStore
	settings *store.SettingsStore
	streaks  *streak.Tracker
	badges   *badge.Evaluator
	logger   *slog.Logger
}

func NewService(tasks *store.TaskStore, settings *store.SettingsStore, streaks *streak.Tracker, badges *badge.Evaluator, logger *slog.Logger) *Service {
	return &Service{
		tasks:    tasks,
		settings: settings,
		streaks:  streaks,
		badges:   badges,
		logger:   logger,
	}
}

// location resolves the household timezone setting, falling back to UTC.
func (s *Service) location(householdID int64) *time.Location {
	tz, err := s.settings.Get(householdID, store.SettingTimezone)
	if err != nil || tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.logger.Warn("bad timezone setting, using UTC", "household_id", householdID, "tz", tz)
		return time.UTC
	}
	return loc
}

// Advance moves a task to the target status, enforcing the machine's edges
// and the role rules on each one:
//
//	todo -> in_progress          assignee (or parent)
//	in_progress -> review        assignee (or parent); proof gate applies
//	review -> done               parent only; awards points
//	done/todo -> archived        parent only
//
// proofURL is only consulted on the submit edge.
func (s *Service) Advance(taskID int64, actor Actor, target, proofURL string, now time.Time) (*AdvanceResult, error) {
	t, err := s.tasks.GetByID(taskID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTaskNotFound
	}

	// Repeat archive of an archived task is a no-op, not an error.
	if t.Status == StatusArchived && target == StatusArchived {
		return &AdvanceResult{Task: t}, nil
	}

	if !CanTransition(t.Status, target) {
		return nil, &InvalidTransitionError{From: t.Status, To: target}
	}

	switch {
	case target == StatusInProgress:
		if err := s.requireAssignee(t, actor); err != nil {
			return nil, err
		}
		if err := s.tasks.SetStatus(t.ID, StatusInProgress); err != nil {
			return nil, err
		}

	case target == StatusReview:
		if err := s.requireAssignee(t, actor); err != nil {
			return nil, err
		}
		if t.RequiresProof && proofURL == "" {
			return nil, ErrProofRequired
		}
		if err := s.tasks.MarkSubmitted(t.ID, actor.ProfileID, proofURL, now); err != nil {
			return nil, err
		}

	case target == StatusDone:
		if !actor.IsParent {
			return nil, ErrParentRequired
		}
		return s.complete(t, actor, now)

	case target == StatusArchived:
		if !actor.IsParent {
			return nil, ErrParentRequired
		}
		if err := s.tasks.SetStatus(t.ID, StatusArchived); err != nil {
			return nil, err
		}
	}

	updated, err := s.tasks.GetByID(t.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("task transitioned",
		"task_id", t.ID, "from", t.Status, "to", target, "profile_id", actor.ProfileID,
	)
	return &AdvanceResult{Task: updated}, nil
}

// requireAssignee allows parents through and otherwise insists the actor is
// on the task's assignee list. Unassigned tasks are open to anyone.
func (s *Service) requireAssignee(t *model.Task, actor Actor) error {
	if actor.IsParent || len(t.AssigneeIDs) == 0 {
		return nil
	}
	for _, id := range t.AssigneeIDs {
		if id == actor.ProfileID {
			return nil
		}
	}
	return ErrNotAssignee
}

// complete settles the review -> done edge: the status flip and the point
// award land in one transaction, then the streak and badge side effects run
// best effort. A failed side effect is logged, never unwinds the completion.
func (s *Service) complete(t *model.Task, actor Actor, now time.Time) (*AdvanceResult, error) {
	completedBy := actor.ProfileID
	if t.SubmittedBy != nil {
		completedBy = *t.SubmittedBy
	}

	completion, err := s.tasks.CompleteTx(t.ID, completedBy, t.Points, actor.ProfileID, now)
	if err != nil {
		return nil, err
	}

	updated, err := s.tasks.GetByID(t.ID)
	if err != nil {
		return nil, err
	}
	result := &AdvanceResult{Task: updated}

	loc := s.location(t.HouseholdID)

	st, err := s.streaks.Touch(completedBy, now, loc)
	if err != nil {
		s.logger.Error("streak update failed", "profile_id", completedBy, "error", err)
	} else {
		result.Streak = st
	}

	awarded, err := s.badges.CheckAndAward(completedBy, loc, now)
	if err != nil {
		s.logger.Error("badge check failed", "profile_id", completedBy, "error", err)
	} else {
		result.NewBadges = awarded
	}

	s.logger.Info("task completed",
		"task_id", t.ID, "completed_by", completedBy,
		"points", completion.PointsEarned, "approved_by", actor.ProfileID,
	)
	return result, nil
}

// ReopenDue flips recurring done tasks whose next occurrence has arrived
// back to todo. Called from the scheduler.
func (s *Service) ReopenDue(now time.Time) (int, error) {
	ids, err := s.tasks.ReopenRecurring(NextDue, now)
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		s.logger.Info("recurring tasks reopened", "count", len(ids))
	}
	return len(ids), nil
}
