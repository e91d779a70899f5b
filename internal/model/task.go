package model

import "time"

type Task struct {
	ID            int64      `json:"id"`
	HouseholdID   int64      `json:"household_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Points        int        `json:"points"`
	DueDate       *time.Time `json:"due_date"`
	Recurrence    string     `json:"recurrence"`
	RequiresProof bool       `json:"requires_proof"`
	ProofURL      string     `json:"proof_url,omitempty"`
	Status        string     `json:"status"`
	SubmittedBy   *int64     `json:"submitted_by"`
	SubmittedAt   *time.Time `json:"submitted_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	SortOrder     int        `json:"sort_order"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	AssigneeIDs []int64 `json:"assignee_ids,omitempty"`
}

type TaskCompletion struct {
	ID           int64     `json:"id"`
	TaskID       int64     `json:"task_id"`
	CompletedBy  int64     `json:"completed_by"`
	PointsEarned int       `json:"points_earned"`
	ApprovedBy   *int64    `json:"approved_by"`
	CompletedAt  time.Time `json:"completed_at"`
}
