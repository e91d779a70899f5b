package model

import "time"

// Badge requirement types.
const (
	BadgeReqTasksCompleted = "tasks-completed"
	BadgeReqStreakDays     = "streak-days"
	BadgeReqPointsEarned   = "points-earned"
	BadgeReqSpecial        = "special"
)

// Badge is a static catalog entry. The catalog lives in code; only earned
// records are persisted.
type Badge struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tier        string `json:"tier"`
	Requirement string `json:"requirement"`
	Threshold   int    `json:"threshold"`
	Condition   string `json:"condition,omitempty"`
}

type EarnedBadge struct {
	ID        int64     `json:"id"`
	ProfileID int64     `json:"profile_id"`
	BadgeCode string    `json:"badge_code"`
	EarnedAt  time.Time `json:"earned_at"`
}
