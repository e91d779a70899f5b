package model

import "time"

// Profile kinds. A parent profile belongs to a registered user; child
// profiles exist only within the household and act via profile selection.
const (
	ProfileKindParent = "parent"
	ProfileKindChild  = "child"
)

type Profile struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	UserID      *int64    `json:"user_id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Color       string    `json:"color"`
	AvatarEmoji string    `json:"avatar_emoji"`
	HasPIN      bool      `json:"has_pin"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
