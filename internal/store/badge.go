package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mhollis/chorequest/internal/model"
)

type BadgeStore struct {
	db *sql.DB
}

func NewBadgeStore(db *sql.DB) *BadgeStore {
	return &BadgeStore{db: db}
}

// Award records an earned badge. The upsert makes repeated evaluation
// idempotent; it reports whether the badge was newly earned.
func (s *BadgeStore) Award(profileID int64, badgeCode string, at time.Time) (bool, error) {
	result, err := s.db.Exec(
		`INSERT INTO earned_badges (profile_id, badge_code, earned_at) VALUES (?, ?, ?)
		 ON CONFLICT(profile_id, badge_code) DO NOTHING`,
		profileID, badgeCode, at.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("award badge: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *BadgeStore) ListEarned(profileID int64) ([]model.EarnedBadge, error) {
	rows, err := s.db.Query(
		`SELECT id, profile_id, badge_code, earned_at FROM earned_badges WHERE profile_id = ? ORDER BY earned_at ASC`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("list earned badges: %w", err)
	}
	defer rows.Close()

	var earned []model.EarnedBadge
	for rows.Next() {
		var e model.EarnedBadge
		if err := rows.Scan(&e.ID, &e.ProfileID, &e.BadgeCode, &e.EarnedAt); err != nil {
			return nil, fmt.Errorf("scan earned badge: %w", err)
		}
		earned = append(earned, e)
	}
	return earned, rows.Err()
}

// EarnedCodes returns the set of badge codes the profile already holds.
func (s *BadgeStore) EarnedCodes(profileID int64) (map[string]bool, error) {
	earned, err := s.ListEarned(profileID)
	if err != nil {
		return nil, err
	}
	codes := make(map[string]bool, len(earned))
	for _, e := range earned {
		codes[e.BadgeCode] = true
	}
	return codes, nil
}

// CompletionTimes returns every completion timestamp for the profile, used
// to evaluate time-of-day badge conditions in the household timezone.
func (s *BadgeStore) CompletionTimes(profileID int64) ([]time.Time, error) {
	rows, err := s.db.Query(
		`SELECT completed_at FROM task_completions WHERE completed_by = ? ORDER BY completed_at ASC`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completion times: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan completion time: %w", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

// LifetimeEarned sums every point ever awarded to the profile. Spending does
// not reduce it; badge thresholds measure accumulation, not balance.
func (s *BadgeStore) LifetimeEarned(profileID int64) (int, error) {
	var earned sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points_earned), 0) FROM task_completions WHERE completed_by = ?`,
		profileID,
	).Scan(&earned)
	if err != nil {
		return 0, fmt.Errorf("sum lifetime points: %w", err)
	}
	return int(earned.Int64), nil
}

// CompletedCount returns how many completions the profile has recorded.
func (s *BadgeStore) CompletedCount(profileID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM task_completions WHERE completed_by = ?`,
		profileID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return count, nil
}
