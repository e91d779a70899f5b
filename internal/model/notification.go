package model

import "time"

// Notification type constants
const (
	NotifTypeReviewSubmitted = "review_submitted"
	NotifTypeTaskApproved    = "task_approved"
	NotifTypeClaimResolved   = "claim_resolved"
	NotifTypeBadgeEarned     = "badge_earned"
)

type Notification struct {
	ID        int64      `json:"id"`
	ProfileID int64      `json:"profile_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

type PushSubscription struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}
