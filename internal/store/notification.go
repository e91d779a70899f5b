package store

import (
	"database/sql"
	"fmt"

	"github.com/mhollis/chorequest/internal/model"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const notificationCols = `id, profile_id, type, title, body, read_at, created_at`

func scanNotification(scanner interface{ Scan(...any) error }) (*model.Notification, error) {
	var n model.Notification
	var readAt sql.NullTime

	err := scanner.Scan(&n.ID, &n.ProfileID, &n.Type, &n.Title, &n.Body, &readAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}

	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	return &n, nil
}

func (s *NotificationStore) Create(profileID int64, notifType, title, body string) (*model.Notification, error) {
	result, err := s.db.Exec(
		`INSERT INTO notifications (profile_id, type, title, body) VALUES (?, ?, ?, ?)`,
		profileID, notifType, title, body,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+notificationCols+` FROM notifications WHERE id = ?`, id)
	return scanNotification(row)
}

func (s *NotificationStore) ListByProfile(profileID int64, unreadOnly bool) ([]model.Notification, error) {
	query := `SELECT ` + notificationCols + ` FROM notifications WHERE profile_id = ?`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := s.db.Query(query, profileID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

func (s *NotificationStore) MarkRead(id int64) error {
	_, err := s.db.Exec(
		`UPDATE notifications SET read_at = CURRENT_TIMESTAMP WHERE id = ? AND read_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (s *NotificationStore) GetByID(id int64) (*model.Notification, error) {
	row := s.db.QueryRow(`SELECT `+notificationCols+` FROM notifications WHERE id = ?`, id)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}
