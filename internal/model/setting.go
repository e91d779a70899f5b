package model

import "time"

type Setting struct {
	HouseholdID int64     `json:"household_id"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	UpdatedAt   time.Time `json:"updated_at"`
}
