package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mhollis/chorequest/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskCols = `id, household_id, title, description, category, points, due_date, recurrence, requires_proof, proof_url, status, submitted_by, submitted_at, completed_at, sort_order, created_at, updated_at`

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var dueDate, submittedAt, completedAt sql.NullTime
	var submittedBy sql.NullInt64
	var requiresProof int

	err := scanner.Scan(
		&t.ID, &t.HouseholdID, &t.Title, &t.Description, &t.Category, &t.Points,
		&dueDate, &t.Recurrence, &requiresProof, &t.ProofURL, &t.Status,
		&submittedBy, &submittedAt, &completedAt, &t.SortOrder, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	if submittedBy.Valid {
		t.SubmittedBy = &submittedBy.Int64
	}
	if submittedAt.Valid {
		t.SubmittedAt = &submittedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	t.RequiresProof = requiresProof != 0
	return &t, nil
}

// CreateParams carries the optional fields of a new task explicitly rather
// than building an ad hoc payload map.
type CreateParams struct {
	Title         string
	Description   string
	Category      string
	Points        int
	DueDate       *time.Time
	Recurrence    string
	RequiresProof bool
	AssigneeIDs   []int64
}

func (s *TaskStore) Create(householdID int64, p CreateParams) (*model.Task, error) {
	var due sql.NullTime
	if p.DueDate != nil {
		due = sql.NullTime{Time: p.DueDate.UTC(), Valid: true}
	}
	var proof int
	if p.RequiresProof {
		proof = 1
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO tasks (household_id, title, description, category, points, due_date, recurrence, requires_proof) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		householdID, p.Title, p.Description, p.Category, p.Points, due, p.Recurrence, proof,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, pid := range p.AssigneeIDs {
		if _, err := tx.Exec(
			`INSERT INTO task_assignees (task_id, profile_id) VALUES (?, ?)`, id, pid,
		); err != nil {
			return nil, fmt.Errorf("insert assignee: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	t.AssigneeIDs, err = s.listAssignees(id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TaskStore) listAssignees(taskID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT profile_id FROM task_assignees WHERE task_id = ? ORDER BY profile_id ASC`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignees: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assignee: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *TaskStore) listWhere(where string, args ...any) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE `+where+` ORDER BY sort_order ASC, due_date ASC, title ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tasks {
		tasks[i].AssigneeIDs, err = s.listAssignees(tasks[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (s *TaskStore) List(householdID int64) ([]model.Task, error) {
	return s.listWhere(`household_id = ?`, householdID)
}

func (s *TaskStore) ListByStatus(householdID int64, status string) ([]model.Task, error) {
	return s.listWhere(`household_id = ? AND status = ?`, householdID, status)
}

func (s *TaskStore) ListByAssignee(householdID, profileID int64) ([]model.Task, error) {
	return s.listWhere(
		`household_id = ? AND id IN (SELECT task_id FROM task_assignees WHERE profile_id = ?)`,
		householdID, profileID,
	)
}

// ListDueBetween returns tasks whose due date falls in [start, end).
func (s *TaskStore) ListDueBetween(householdID int64, start, end time.Time) ([]model.Task, error) {
	return s.listWhere(
		`household_id = ? AND due_date IS NOT NULL AND due_date >= ? AND due_date < ?`,
		householdID, start.UTC(), end.UTC(),
	)
}

func (s *TaskStore) Update(id int64, p CreateParams) (*model.Task, error) {
	var due sql.NullTime
	if p.DueDate != nil {
		due = sql.NullTime{Time: p.DueDate.UTC(), Valid: true}
	}
	var proof int
	if p.RequiresProof {
		proof = 1
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE tasks SET title = ?, description = ?, category = ?, points = ?, due_date = ?, recurrence = ?, requires_proof = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		p.Title, p.Description, p.Category, p.Points, due, p.Recurrence, proof, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM task_assignees WHERE task_id = ?`, id); err != nil {
		return nil, fmt.Errorf("clear assignees: %w", err)
	}
	for _, pid := range p.AssigneeIDs {
		if _, err := tx.Exec(
			`INSERT INTO task_assignees (task_id, profile_id) VALUES (?, ?)`, id, pid,
		); err != nil {
			return nil, fmt.Errorf("insert assignee: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// SetStatus updates only the status column.
func (s *TaskStore) SetStatus(id int64, status string) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("set task status: %w", err)
	}
	return nil
}

// MarkSubmitted moves the task into review with the submitting profile and
// optional proof URL.
func (s *TaskStore) MarkSubmitted(id, profileID int64, proofURL string, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET status = 'review', submitted_by = ?, submitted_at = ?, proof_url = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		profileID, at.UTC(), proofURL, id,
	)
	if err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	return nil
}

// CompleteTx marks the task done and records the point-awarding completion
// in a single transaction. The completion insert is authoritative for points.
func (s *TaskStore) CompleteTx(id, completedBy int64, points int, approvedBy int64, at time.Time) (*model.TaskCompletion, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE tasks SET status = 'done', completed_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		at.UTC(), id,
	); err != nil {
		return nil, fmt.Errorf("mark done: %w", err)
	}

	result, err := tx.Exec(
		`INSERT INTO task_completions (task_id, completed_by, points_earned, approved_by, completed_at) VALUES (?, ?, ?, ?, ?)`,
		id, completedBy, points, approvedBy, at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	cid, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT id, task_id, completed_by, points_earned, approved_by, completed_at FROM task_completions WHERE id = ?`,
		cid,
	)
	return scanCompletion(row)
}

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.TaskCompletion, error) {
	var c model.TaskCompletion
	var approvedBy sql.NullInt64

	err := scanner.Scan(&c.ID, &c.TaskID, &c.CompletedBy, &c.PointsEarned, &approvedBy, &c.CompletedAt)
	if err != nil {
		return nil, err
	}

	if approvedBy.Valid {
		c.ApprovedBy = &approvedBy.Int64
	}
	return &c, nil
}

func (s *TaskStore) ListCompletionsByProfile(profileID int64) ([]model.TaskCompletion, error) {
	rows, err := s.db.Query(
		`SELECT id, task_id, completed_by, points_earned, approved_by, completed_at FROM task_completions WHERE completed_by = ? ORDER BY completed_at DESC`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.TaskCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

// ReopenRecurring resets recurring done tasks whose next occurrence has
// arrived back to todo. Returns the reopened task IDs.
func (s *TaskStore) ReopenRecurring(nextDue func(recurrence string, completedAt time.Time) *time.Time, now time.Time) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT id, recurrence, completed_at FROM tasks WHERE recurrence != '' AND status = 'done' AND completed_at IS NOT NULL`,
	)
	if err != nil {
		return nil, fmt.Errorf("list recurring tasks: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		id   int64
		next time.Time
	}
	var due []candidate
	for rows.Next() {
		var id int64
		var recurrence string
		var completedAt time.Time
		if err := rows.Scan(&id, &recurrence, &completedAt); err != nil {
			return nil, fmt.Errorf("scan recurring task: %w", err)
		}
		next := nextDue(recurrence, completedAt)
		if next != nil && !next.After(now) {
			due = append(due, candidate{id: id, next: *next})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var reopened []int64
	for _, c := range due {
		if _, err := s.db.Exec(
			`UPDATE tasks SET status = 'todo', due_date = ?, proof_url = '', submitted_by = NULL, submitted_at = NULL, completed_at = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			c.next.UTC(), c.id,
		); err != nil {
			return nil, fmt.Errorf("reopen task %d: %w", c.id, err)
		}
		reopened = append(reopened, c.id)
	}
	return reopened, nil
}
