package store

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/mhollis/chorequest/internal/model"
)

// Well-known setting keys.
const (
	SettingDefaultTaskPoints  = "default_task_points"
	SettingRequirePhotoProof  = "require_photo_proof"
	SettingTimezone           = "timezone"
	SettingLeaderboardEnabled = "leaderboard_enabled"
)

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(householdID int64, key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM settings WHERE household_id = ? AND key = ?`,
		householdID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) GetBool(householdID int64, key string) (bool, error) {
	v, err := s.Get(householdID, key)
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

func (s *SettingsStore) GetInt(householdID int64, key string) (int, error) {
	v, err := s.Get(householdID, key)
	if err != nil || v == "" {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("setting %q not an int: %w", key, err)
	}
	return n, nil
}

func (s *SettingsStore) Set(householdID int64, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (household_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(household_id, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		householdID, key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *SettingsStore) List(householdID int64) ([]model.Setting, error) {
	rows, err := s.db.Query(
		`SELECT household_id, key, value, updated_at FROM settings WHERE household_id = ? ORDER BY key ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []model.Setting
	for rows.Next() {
		var st model.Setting
		if err := rows.Scan(&st.HouseholdID, &st.Key, &st.Value, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings = append(settings, st)
	}
	return settings, rows.Err()
}

// SeedDefaults inserts the default settings for a new household in one
// transaction.
func (s *SettingsStore) SeedDefaults(householdID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	defaults := []struct {
		key   string
		value string
	}{
		{SettingDefaultTaskPoints, "10"},
		{SettingRequirePhotoProof, "false"},
		{SettingTimezone, "UTC"},
		{SettingLeaderboardEnabled, "true"},
	}
	for _, d := range defaults {
		if _, err := tx.Exec(
			`INSERT INTO settings (household_id, key, value) VALUES (?, ?, ?)`,
			householdID, d.key, d.value,
		); err != nil {
			return fmt.Errorf("seed setting %q: %w", d.key, err)
		}
	}

	return tx.Commit()
}
