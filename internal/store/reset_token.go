package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mhollis/chorequest/internal/model"
)

const resetTokenTTL = 15 * time.Minute

type ResetTokenStore struct {
	db *sql.DB
}

func NewResetTokenStore(db *sql.DB) *ResetTokenStore {
	return &ResetTokenStore{db: db}
}

const resetTokenCols = `id, token, email, expires_at, used_at, attempts, created_at`

func scanResetToken(scanner interface{ Scan(...any) error }) (*model.ResetToken, error) {
	var t model.ResetToken
	var usedAt sql.NullTime

	err := scanner.Scan(&t.ID, &t.Token, &t.Email, &t.ExpiresAt, &usedAt, &t.Attempts, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	if usedAt.Valid {
		t.UsedAt = &usedAt.Time
	}
	return &t, nil
}

func (s *ResetTokenStore) Create(email string) (*model.ResetToken, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(
		`INSERT INTO reset_tokens (token, email, expires_at) VALUES (?, ?, ?)`,
		token, strings.ToLower(email), time.Now().UTC().Add(resetTokenTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reset token: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+resetTokenCols+` FROM reset_tokens WHERE id = ?`, id)
	return scanResetToken(row)
}

// Consume validates and single-uses a reset token. Returns nil if the token
// is unknown, expired, or already used.
func (s *ResetTokenStore) Consume(token string) (*model.ResetToken, error) {
	row := s.db.QueryRow(
		`SELECT `+resetTokenCols+` FROM reset_tokens WHERE token = ?`, token,
	)
	t, err := scanResetToken(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reset token: %w", err)
	}

	if t.UsedAt != nil || time.Now().UTC().After(t.ExpiresAt) {
		return nil, nil
	}

	if _, err := s.db.Exec(
		`UPDATE reset_tokens SET used_at = CURRENT_TIMESTAMP, attempts = attempts + 1 WHERE id = ?`,
		t.ID,
	); err != nil {
		return nil, fmt.Errorf("mark reset token used: %w", err)
	}
	return t, nil
}

// DeleteExpired removes tokens past their expiry and returns the count.
func (s *ResetTokenStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM reset_tokens WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired reset tokens: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
