package model

import "time"

type Reward struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	PointCost   int       `json:"point_cost"`
	Stock       *int      `json:"stock"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Claim statuses.
const (
	ClaimPending  = "pending"
	ClaimApproved = "approved"
	ClaimRejected = "rejected"
)

type RewardClaim struct {
	ID             string     `json:"id"`
	RewardID       int64      `json:"reward_id"`
	ProfileID      int64      `json:"profile_id"`
	PointsSpent    int        `json:"points_spent"`
	Status         string     `json:"status"`
	IdempotencyKey *string    `json:"idempotency_key,omitempty"`
	ClaimedAt      time.Time  `json:"claimed_at"`
	ResolvedAt     *time.Time `json:"resolved_at"`
	ResolvedBy     *int64     `json:"resolved_by"`
	RejectReason   string     `json:"reject_reason,omitempty"`
	CooldownUntil  *time.Time `json:"cooldown_until,omitempty"`
}

type PointBalance struct {
	ProfileID   int64  `json:"profile_id"`
	ProfileName string `json:"profile_name"`
	TotalEarned int    `json:"total_earned"`
	TotalSpent  int    `json:"total_spent"`
	Balance     int    `json:"balance"`
}
