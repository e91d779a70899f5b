package store

import (
	"database/sql"
	"fmt"

	"github.com/mhollis/chorequest/internal/model"
)

type StreakStore struct {
	db *sql.DB
}

func NewStreakStore(db *sql.DB) *StreakStore {
	return &StreakStore{db: db}
}

// Get returns the streak state for a profile, zero-valued if never active.
func (s *StreakStore) Get(profileID int64) (*model.StreakState, error) {
	row := s.db.QueryRow(
		`SELECT profile_id, current_streak, longest_streak, last_active_day, updated_at FROM profile_streaks WHERE profile_id = ?`,
		profileID,
	)
	var st model.StreakState
	err := row.Scan(&st.ProfileID, &st.CurrentStreak, &st.LongestStreak, &st.LastActiveDay, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return &model.StreakState{ProfileID: profileID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}
	return &st, nil
}

// Save upserts the streak counters and records the active day in history.
func (s *StreakStore) Save(st *model.StreakState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO profile_streaks (profile_id, current_streak, longest_streak, last_active_day, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(profile_id) DO UPDATE SET
		   current_streak = excluded.current_streak,
		   longest_streak = excluded.longest_streak,
		   last_active_day = excluded.last_active_day,
		   updated_at = CURRENT_TIMESTAMP`,
		st.ProfileID, st.CurrentStreak, st.LongestStreak, st.LastActiveDay,
	); err != nil {
		return fmt.Errorf("save streak: %w", err)
	}

	if st.LastActiveDay != "" {
		if _, err := tx.Exec(
			`INSERT INTO streak_days (profile_id, day) VALUES (?, ?) ON CONFLICT(profile_id, day) DO NOTHING`,
			st.ProfileID, st.LastActiveDay,
		); err != nil {
			return fmt.Errorf("record streak day: %w", err)
		}
	}

	return tx.Commit()
}

// History returns the profile's active days, most recent first.
func (s *StreakStore) History(profileID int64, limit int) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT day FROM streak_days WHERE profile_id = ? ORDER BY day DESC LIMIT ?`,
		profileID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("streak history: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("scan streak day: %w", err)
		}
		days = append(days, day)
	}
	return days, rows.Err()
}
