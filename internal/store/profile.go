package store

import (
	"database/sql"
	"fmt"

	"github.com/mhollis/chorequest/internal/model"
)

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

const profileCols = `id, household_id, user_id, name, kind, color, avatar_emoji, pin_hash, sort_order, created_at, updated_at`

func scanProfile(scanner interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	var userID sql.NullInt64
	var pinHash string

	err := scanner.Scan(
		&p.ID, &p.HouseholdID, &userID, &p.Name, &p.Kind, &p.Color,
		&p.AvatarEmoji, &pinHash, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		p.UserID = &userID.Int64
	}
	p.HasPIN = pinHash != ""
	return &p, nil
}

func (s *ProfileStore) Create(householdID int64, userID *int64, name, kind, color, avatarEmoji string) (*model.Profile, error) {
	var uid sql.NullInt64
	if userID != nil {
		uid = sql.NullInt64{Int64: *userID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO profiles (household_id, user_id, name, kind, color, avatar_emoji) VALUES (?, ?, ?, ?, ?, ?)`,
		householdID, uid, name, kind, color, avatarEmoji,
	)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProfileStore) GetByID(id int64) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// GetForUser returns the parent profile belonging to a user within a household.
func (s *ProfileStore) GetForUser(householdID, userID int64) (*model.Profile, error) {
	row := s.db.QueryRow(
		`SELECT `+profileCols+` FROM profiles WHERE household_id = ? AND user_id = ?`,
		householdID, userID,
	)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile for user: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) List(householdID int64) ([]model.Profile, error) {
	rows, err := s.db.Query(
		`SELECT `+profileCols+` FROM profiles WHERE household_id = ? ORDER BY sort_order ASC, name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func (s *ProfileStore) Update(id int64, name, color, avatarEmoji string, sortOrder int) (*model.Profile, error) {
	_, err := s.db.Exec(
		`UPDATE profiles SET name = ?, color = ?, avatar_emoji = ?, sort_order = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, color, avatarEmoji, sortOrder, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProfileStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func (s *ProfileStore) NameExists(householdID int64, name string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM profiles WHERE household_id = ? AND name = ? AND id != ?`,
		householdID, name, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check profile name: %w", err)
	}
	return count > 0, nil
}

func (s *ProfileStore) SetPIN(id int64, pinHash string) error {
	_, err := s.db.Exec(
		`UPDATE profiles SET pin_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		pinHash, id,
	)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *ProfileStore) ClearPIN(id int64) error {
	return s.SetPIN(id, "")
}

func (s *ProfileStore) GetPINHash(id int64) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT pin_hash FROM profiles WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get pin hash: %w", err)
	}
	return hash, nil
}

func (s *ProfileStore) UpdateSortOrder(ids []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		if _, err := tx.Exec(`UPDATE profiles SET sort_order = ? WHERE id = ?`, i, id); err != nil {
			return fmt.Errorf("update sort order: %w", err)
		}
	}
	return tx.Commit()
}
