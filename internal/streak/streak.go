// Package streak derives consecutive-day activity counters from a profile's
// completion history. Days are calendar days in the household's timezone;
// one completion per day is enough, extra completions are no-ops.
package streak

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mhollis/chorequest/internal/model"
	"github.com/mhollis/chorequest/internal/store"
)

const dayFormat = "2006-01-02"

// Day truncates t to its calendar day in loc.
func Day(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayFormat)
}

// Apply advances the streak state for activity on the given day. It is a
// pure function; the second return is false when the state is unchanged
// (repeat activity on the same day).
func Apply(st model.StreakState, day string) (model.StreakState, bool) {
	if st.LastActiveDay == day {
		return st, false
	}

	switch {
	case st.LastActiveDay == "":
		// First ever activity
		st.CurrentStreak = 1
	case daysBetween(st.LastActiveDay, day) == 1:
		st.CurrentStreak++
	default:
		// Gap of more than one day breaks the streak
		st.CurrentStreak = 1
	}

	if st.CurrentStreak > st.LongestStreak {
		st.LongestStreak = st.CurrentStreak
	}
	st.LastActiveDay = day
	return st, true
}

func daysBetween(from, to string) int {
	a, errA := time.Parse(dayFormat, from)
	b, errB := time.Parse(dayFormat, to)
	if errA != nil || errB != nil {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

// Tracker persists streak updates.
type Tracker struct {
	store  *store.StreakStore
	logger *slog.Logger
}

func NewTracker(st *store.StreakStore, logger *slog.Logger) *Tracker {
	return &Tracker{store: st, logger: logger}
}

// Touch records activity for the profile at the given instant and returns
// the resulting state. Same-day repeats return the stored state unchanged.
func (t *Tracker) Touch(profileID int64, at time.Time, loc *time.Location) (*model.StreakState, error) {
	st, err := t.store.Get(profileID)
	if err != nil {
		return nil, fmt.Errorf("load streak: %w", err)
	}

	next, changed := Apply(*st, Day(at, loc))
	if !changed {
		return st, nil
	}

	if err := t.store.Save(&next); err != nil {
		return nil, fmt.Errorf("save streak: %w", err)
	}

	t.logger.Debug("streak updated",
		"profile_id", profileID,
		"current", next.CurrentStreak,
		"longest", next.LongestStreak,
	)
	return &next, nil
}
