package badge

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mhollis/chorequest/internal/model"
	"github.com/mhollis/chorequest/internal/store"
)

// Stats is the snapshot a profile is evaluated against.
type Stats struct {
	CompletedTasks     int
	CurrentStreak      int
	LifetimePoints     int
	MorningCompletions int
	NightCompletions   int
}

// Eligible reports whether the stats satisfy the badge's requirement.
// Evaluation is pure; persistence is the evaluator's concern.
func Eligible(b model.Badge, s Stats) bool {
	switch b.Requirement {
	case model.BadgeReqTasksCompleted:
		return s.CompletedTasks >= b.Threshold
	case model.BadgeReqStreakDays:
		return s.CurrentStreak >= b.Threshold
	case model.BadgeReqPointsEarned:
		return s.LifetimePoints >= b.Threshold
	case model.BadgeReqSpecial:
		switch b.Condition {
		case CondMorningTasks:
			return s.MorningCompletions >= morningGoal
		case CondNightTasks:
			return s.NightCompletions >= nightGoal
		case CondPerfectWeek:
			return s.CurrentStreak >= perfectWeekDays
		}
	}
	return false
}

// Evaluate returns the catalog entries the stats qualify for, excluding
// already-earned codes.
func Evaluate(s Stats, earned map[string]bool) []model.Badge {
	var qualifying []model.Badge
	for _, b := range Catalog {
		if earned[b.Code] {
			continue
		}
		if Eligible(b, s) {
			qualifying = append(qualifying, b)
		}
	}
	return qualifying
}

// Evaluator loads stats, evaluates the catalog, and persists new awards.
type Evaluator struct {
	badges  *store.BadgeStore
	streaks *store.StreakStore
	logger  *slog.Logger
}

func NewEvaluator(badges *store.BadgeStore, streaks *store.StreakStore, logger *slog.Logger) *Evaluator {
	return &Evaluator{badges: badges, streaks: streaks, logger: logger}
}

// StatsFor builds the evaluation snapshot for a profile. Time-of-day counts
// are computed against the household timezone.
func (e *Evaluator) StatsFor(profileID int64, loc *time.Location) (Stats, error) {
	var s Stats

	completed, err := e.badges.CompletedCount(profileID)
	if err != nil {
		return s, fmt.Errorf("completed count: %w", err)
	}
	s.CompletedTasks = completed

	points, err := e.badges.LifetimeEarned(profileID)
	if err != nil {
		return s, fmt.Errorf("lifetime points: %w", err)
	}
	s.LifetimePoints = points

	st, err := e.streaks.Get(profileID)
	if err != nil {
		return s, fmt.Errorf("streak: %w", err)
	}
	s.CurrentStreak = st.CurrentStreak

	times, err := e.badges.CompletionTimes(profileID)
	if err != nil {
		return s, fmt.Errorf("completion times: %w", err)
	}
	for _, t := range times {
		hour := t.In(loc).Hour()
		if hour < morningCutoffHour {
			s.MorningCompletions++
		}
		if hour >= nightStartHour {
			s.NightCompletions++
		}
	}

	return s, nil
}

// CheckAndAward evaluates the profile against the catalog and persists any
// newly qualifying badges. Returns the new awards for UI celebration.
func (e *Evaluator) CheckAndAward(profileID int64, loc *time.Location, now time.Time) ([]model.Badge, error) {
	stats, err := e.StatsFor(profileID, loc)
	if err != nil {
		return nil, err
	}

	earned, err := e.badges.EarnedCodes(profileID)
	if err != nil {
		return nil, fmt.Errorf("earned codes: %w", err)
	}

	var awarded []model.Badge
	for _, b := range Evaluate(stats, earned) {
		isNew, err := e.badges.Award(profileID, b.Code, now)
		if err != nil {
			return awarded, fmt.Errorf("award %q: %w", b.Code, err)
		}
		if isNew {
			awarded = append(awarded, b)
			e.logger.Info("badge earned", "profile_id", profileID, "badge", b.Code)
		}
	}
	return awarded, nil
}
