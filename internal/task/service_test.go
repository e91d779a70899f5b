package task

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mhollis/chorequest/internal/badge"
	"github.com/mhollis/chorequest/internal/database"
	"github.com/mhollis/chorequest/internal/store"
	"github.com/mhollis/chorequest/internal/streak"
)

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	streakStore := store.NewStreakStore(db)
	svc := NewService(
		store.NewTaskStore(db),
		store.NewSettingsStore(db),
		streak.NewTracker(streakStore, logger),
		badge.NewEvaluator(store.NewBadgeStore(db), streakStore, logger),
		logger,
	)
	return svc, db
}

func seedHousehold(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO households (name, join_code) VALUES ('Test Family', 'TESTCODE')`)
	if err != nil {
		t.Fatalf("seed household: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func seedProfile(t *testing.T, db *sql.DB, householdID int64, name string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO profiles (household_id, name) VALUES (?, ?)`, householdID, name)
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func seedTask(t *testing.T, svc *Service, householdID int64, p store.CreateParams) int64 {
	t.Helper()
	task, err := svc.tasks.Create(householdID, p)
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task.ID
}

func TestAdvanceHappyPath(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kid := seedProfile(t, db, hh, "Milo")
	parent := seedProfile(t, db, hh, "Dana")
	taskID := seedTask(t, svc, hh, store.CreateParams{Title: "Dishes", Points: 15, AssigneeIDs: []int64{kid}})

	child := Actor{ProfileID: kid}
	adult := Actor{ProfileID: parent, IsParent: true}
	now := time.Now()

	res, err := svc.Advance(taskID, child, StatusInProgress, "", now)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Task.Status != StatusInProgress {
		t.Errorf("status = %q, want in_progress", res.Task.Status)
	}

	res, err = svc.Advance(taskID, child, StatusReview, "", now)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Task.Status != StatusReview {
		t.Errorf("status = %q, want review", res.Task.Status)
	}
	if res.Task.SubmittedBy == nil || *res.Task.SubmittedBy != kid {
		t.Errorf("submitted_by = %v, want %d", res.Task.SubmittedBy, kid)
	}

	res, err = svc.Advance(taskID, adult, StatusDone, "", now)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.Task.Status != StatusDone {
		t.Errorf("status = %q, want done", res.Task.Status)
	}
	if res.Streak == nil || res.Streak.CurrentStreak != 1 {
		t.Errorf("streak = %+v, want current 1", res.Streak)
	}

	// Points credit the submitting child, not the approving parent.
	var earned int
	if err := db.QueryRow(
		`SELECT COALESCE(SUM(points_earned), 0) FROM task_completions WHERE completed_by = ?`, kid,
	).Scan(&earned); err != nil {
		t.Fatalf("sum points: %v", err)
	}
	if earned != 15 {
		t.Errorf("points earned = %d, want 15", earned)
	}
}

func TestAdvanceRejectsIllegalEdges(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	parent := seedProfile(t, db, hh, "Dana")
	taskID := seedTask(t, svc, hh, store.CreateParams{Title: "Dishes", Points: 10})
	adult := Actor{ProfileID: parent, IsParent: true}

	// todo -> done skips in_progress and review
	_, err := svc.Advance(taskID, adult, StatusDone, "", time.Now())
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("got %v, want InvalidTransitionError", err)
	}
	if invalid.From != StatusTodo || invalid.To != StatusDone {
		t.Errorf("edge = %s -> %s", invalid.From, invalid.To)
	}
}

func TestAdvanceProofGate(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kid := seedProfile(t, db, hh, "Milo")
	taskID := seedTask(t, svc, hh, store.CreateParams{
		Title: "Clean room", Points: 20, RequiresProof: true, AssigneeIDs: []int64{kid},
	})
	child := Actor{ProfileID: kid}
	now := time.Now()

	if _, err := svc.Advance(taskID, child, StatusInProgress, "", now); err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err := svc.Advance(taskID, child, StatusReview, "", now)
	if !errors.Is(err, ErrProofRequired) {
		t.Fatalf("submit without proof: got %v, want ErrProofRequired", err)
	}

	res, err := svc.Advance(taskID, child, StatusReview, "https://photos.example/room.jpg", now)
	if err != nil {
		t.Fatalf("submit with proof: %v", err)
	}
	if res.Task.ProofURL != "https://photos.example/room.jpg" {
		t.Errorf("proof_url = %q", res.Task.ProofURL)
	}
}

func TestAdvanceParentGate(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kid := seedProfile(t, db, hh, "Milo")
	taskID := seedTask(t, svc, hh, store.CreateParams{Title: "Dishes", Points: 10, AssigneeIDs: []int64{kid}})
	child := Actor{ProfileID: kid}
	now := time.Now()

	if _, err := svc.Advance(taskID, child, StatusInProgress, "", now); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Advance(taskID, child, StatusReview, "", now); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// A child cannot approve their own submission.
	if _, err := svc.Advance(taskID, child, StatusDone, "", now); !errors.Is(err, ErrParentRequired) {
		t.Errorf("child approve: got %v, want ErrParentRequired", err)
	}
}

func TestAdvanceAssigneeGate(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kidA := seedProfile(t, db, hh, "Milo")
	kidB := seedProfile(t, db, hh, "June")
	assigned := seedTask(t, svc, hh, store.CreateParams{Title: "Dishes", Points: 10, AssigneeIDs: []int64{kidA}})
	open := seedTask(t, svc, hh, store.CreateParams{Title: "Trash", Points: 5})

	_, err := svc.Advance(assigned, Actor{ProfileID: kidB}, StatusInProgress, "", time.Now())
	if !errors.Is(err, ErrNotAssignee) {
		t.Errorf("other kid on assigned task: got %v, want ErrNotAssignee", err)
	}

	// Unassigned tasks are open to anyone in the household.
	if _, err := svc.Advance(open, Actor{ProfileID: kidB}, StatusInProgress, "", time.Now()); err != nil {
		t.Errorf("unassigned task: %v", err)
	}
}

func TestAdvanceNeverMovesBackward(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kid := seedProfile(t, db, hh, "Milo")
	parent := seedProfile(t, db, hh, "Dana")
	child := Actor{ProfileID: kid}
	adult := Actor{ProfileID: parent, IsParent: true}
	now := time.Now()

	// Even a parent cannot pull a submission back out of review.
	submitted := seedTask(t, svc, hh, store.CreateParams{Title: "Dishes", Points: 10, AssigneeIDs: []int64{kid}})
	if _, err := svc.Advance(submitted, child, StatusInProgress, "", now); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Advance(submitted, child, StatusReview, "", now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err := svc.Advance(submitted, adult, StatusInProgress, "", now)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("review -> in_progress: got %v, want InvalidTransitionError", err)
	}
	if invalid.From != StatusReview || invalid.To != StatusInProgress {
		t.Errorf("edge = %s -> %s", invalid.From, invalid.To)
	}

	// A started task cannot drop back to todo either.
	started := seedTask(t, svc, hh, store.CreateParams{Title: "Trash", Points: 5, AssigneeIDs: []int64{kid}})
	if _, err := svc.Advance(started, child, StatusInProgress, "", now); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Advance(started, child, StatusTodo, "", now); !errors.As(err, &invalid) {
		t.Fatalf("in_progress -> todo: got %v, want InvalidTransitionError", err)
	}

	// Both tasks hold their positions.
	var status string
	if err := db.QueryRow(`SELECT status FROM tasks WHERE id = ?`, submitted).Scan(&status); err != nil {
		t.Fatalf("read task: %v", err)
	}
	if status != StatusReview {
		t.Errorf("submitted status = %q, want review", status)
	}
	if err := db.QueryRow(`SELECT status FROM tasks WHERE id = ?`, started).Scan(&status); err != nil {
		t.Fatalf("read task: %v", err)
	}
	if status != StatusInProgress {
		t.Errorf("started status = %q, want in_progress", status)
	}
}

func TestAdvanceArchiveIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	parent := seedProfile(t, db, hh, "Dana")
	taskID := seedTask(t, svc, hh, store.CreateParams{Title: "Dishes", Points: 10})
	adult := Actor{ProfileID: parent, IsParent: true}

	if _, err := svc.Advance(taskID, adult, StatusArchived, "", time.Now()); err != nil {
		t.Fatalf("archive: %v", err)
	}
	res, err := svc.Advance(taskID, adult, StatusArchived, "", time.Now())
	if err != nil {
		t.Fatalf("repeat archive: %v", err)
	}
	if res.Task.Status != StatusArchived {
		t.Errorf("status = %q, want archived", res.Task.Status)
	}
}

func TestNextDue(t *testing.T) {
	done := time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)

	if next := NextDue(RecurDaily, done); next == nil || next.Day() != 29 {
		t.Errorf("daily next = %v", next)
	}
	if next := NextDue(RecurWeekly, done); next == nil || next.Day() != 4 || next.Month() != time.September {
		t.Errorf("weekly next = %v", next)
	}
	if next := NextDue(RecurMonthly, done); next == nil || next.Month() != time.September {
		t.Errorf("monthly next = %v", next)
	}
	if next := NextDue(RecurNone, done); next != nil {
		t.Errorf("one-shot next = %v, want nil", next)
	}
}

func TestReopenDue(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kid := seedProfile(t, db, hh, "Milo")
	parent := seedProfile(t, db, hh, "Dana")
	taskID := seedTask(t, svc, hh, store.CreateParams{
		Title: "Feed cat", Points: 5, Recurrence: RecurDaily, AssigneeIDs: []int64{kid},
	})
	child := Actor{ProfileID: kid}
	adult := Actor{ProfileID: parent, IsParent: true}

	completedAt := time.Now().Add(-36 * time.Hour)
	if _, err := svc.Advance(taskID, child, StatusInProgress, "", completedAt); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Advance(taskID, child, StatusReview, "", completedAt); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.Advance(taskID, adult, StatusDone, "", completedAt); err != nil {
		t.Fatalf("approve: %v", err)
	}

	n, err := svc.ReopenDue(time.Now())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if n != 1 {
		t.Fatalf("reopened = %d, want 1", n)
	}

	var status, proof string
	if err := db.QueryRow(`SELECT status, proof_url FROM tasks WHERE id = ?`, taskID).Scan(&status, &proof); err != nil {
		t.Fatalf("read task: %v", err)
	}
	if status != StatusTodo {
		t.Errorf("status = %q, want todo", status)
	}
	if proof != "" {
		t.Errorf("proof_url = %q, want cleared", proof)
	}
}

func TestCanTransitionTable(t *testing.T) {
	allowed := []struct{ from, to string }{
		{StatusTodo, StatusInProgress},
		{StatusTodo, StatusArchived},
		{StatusInProgress, StatusReview},
		{StatusReview, StatusDone},
		{StatusDone, StatusArchived},
		{StatusArchived, StatusArchived},
	}
	for _, e := range allowed {
		if !CanTransition(e.from, e.to) {
			t.Errorf("%s -> %s should be allowed", e.from, e.to)
		}
	}

	denied := []struct{ from, to string }{
		{StatusTodo, StatusDone},
		{StatusTodo, StatusReview},
		{StatusInProgress, StatusTodo},
		{StatusReview, StatusInProgress},
		{StatusReview, StatusTodo},
		{StatusDone, StatusTodo},
		{StatusDone, StatusReview},
		{StatusArchived, StatusTodo},
		{StatusReview, StatusArchived},
	}
	for _, e := range denied {
		if CanTransition(e.from, e.to) {
			t.Errorf("%s -> %s should be denied", e.from, e.to)
		}
	}
}
