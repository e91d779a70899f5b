package model

import "time"

// StreakState holds a profile's consecutive-day activity counters.
// LastActiveDay is a calendar day in the household timezone, YYYY-MM-DD.
type StreakState struct {
	ProfileID     int64     `json:"profile_id"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	LastActiveDay string    `json:"last_active_day"`
	UpdatedAt     time.Time `json:"updated_at"`
}
