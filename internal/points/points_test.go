package points

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mhollis/chorequest/internal/database"
	"github.com/mhollis/chorequest/internal/model"
)

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(db, logger), db
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

func seedReward(t *testing.T, db *sql.DB, householdID int64, cost int, stock *int) int64 {
	t.Helper()
	res, err := db.Exec(
		`INSERT INTO rewards (household_id, title, point_cost, stock) VALUES (?, 'Ice Cream', ?, ?)`,
		householdID, cost, stock,
	)
	if err != nil {
		t.Fatalf("seed reward: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func earnPoints(t *testing.T, db *sql.DB, householdID, profileID int64, points int) {
	t.Helper()
	res, err := db.Exec(
		`INSERT INTO tasks (household_id, title, points, status) VALUES (?, 'Chore', ?, 'done')`,
		householdID, points,
	)
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}
	taskID, _ := res.LastInsertId()
	if _, err := db.Exec(
		`INSERT INTO task_completions (task_id, completed_by, points_earned) VALUES (?, ?, ?)`,
		taskID, profileID, points,
	); err != nil {
		t.Fatalf("seed completion: %v", err)
	}
}

func TestClaimDeductsPoints(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kid := seedProfile(t, db, hh, "Milo")
	reward := seedReward(t, db, hh, 30, nil)
	earnPoints(t, db, hh, kid, 100)

	claim, balance, err := svc.Claim(reward, kid, "", time.Now())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claim.Status != model.ClaimPending {
		t.Errorf("status = %q, want pending", claim.Status)
	}
	if claim.PointsSpent != 30 {
		t.Errorf("points spent = %d, want 30", claim.PointsSpent)
	}
	if balance != 70 {
		t.Errorf("balance = %d, want 70", balance)
	}
}

func TestRejectRefundsAndStartsCooldown(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kid := seedProfile(t, db, hh, "Milo")
	parent := seedProfile(t, db, hh, "Dana")
	reward := seedReward(t, db, hh, 30, nil)
	earnPoints(t, db, hh, kid, 100)

	now := time.Now()
	claim, _, err := svc.Claim(reward, kid, "", now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	rejected, err := svc.Reject(claim.ID, parent, "not finished", now)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != model.ClaimRejected {
		t.Errorf("status = %q, want rejected", rejected.Status)
	}
	if rejected.CooldownUntil == nil {
		t.Fatal("expected cooldown to be set")
	}

	// Claim plus reject must conserve the balance.
	bal, err := svc.Balance(kid)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Balance != 100 {
		t.Errorf("balance after reject = %d, want 100", bal.Balance)
	}

	// The cooldown blocks an immediate re-claim.
	_, _, err = svc.Claim(reward, kid, "", now.Add(time.Hour))
	if !errors.Is(err, ErrCooldownActive) {
		t.Errorf("re-claim during cooldown: got %v, want ErrCooldownActive", err)
	}

	// After the cooldown passes the reward opens back up.
	_, _, err = svc.Claim(reward, kid, "", now.Add(25*time.Hour))
	if err != nil {
		t.Errorf("re-claim after cooldown: %v", err)
	}
}

func TestApproveKeepsDeduction(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kid := seedProfile(t, db, hh, "Milo")
	parent := seedProfile(t, db, hh, "Dana")
	reward := seedReward(t, db, hh, 40, nil)
	earnPoints(t, db, hh, kid, 100)

	claim, _, err := svc.Claim(reward, kid, "", time.Now())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	approved, err := svc.Approve(claim.ID, parent, time.Now())
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != model.ClaimApproved {
		t.Errorf("status = %q, want approved", approved.Status)
	}
	if approved.ResolvedBy == nil || *approved.ResolvedBy != parent {
		t.Errorf("resolved_by = %v, want %d", approved.ResolvedBy, parent)
	}

	bal, err := svc.Balance(kid)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Balance != 60 {
		t.Errorf("balance after approve = %d, want 60", bal.Balance)
	}
}

func TestClaimInsufficientPoints(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kid := seedProfile(t, db, hh, "Milo")
	reward := seedReward(t, db, hh, 50, nil)
	earnPoints(t, db, hh, kid, 30)

	_, _, err := svc.Claim(reward, kid, "", time.Now())
	var insufficient *InsufficientPointsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("got %v, want InsufficientPointsError", err)
	}
	if insufficient.Shortfall != 20 {
		t.Errorf("shortfall = %d, want 20", insufficient.Shortfall)
	}

	// A failed claim leaves no record behind.
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM reward_claims`).Scan(&count); err != nil {
		t.Fatalf("count claims: %v", err)
	}
	if count != 0 {
		t.Errorf("claims = %d, want 0", count)
	}
}

func TestClaimBlocksSecondPending(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kid := seedProfile(t, db, hh, "Milo")
	reward := seedReward(t, db, hh, 10, nil)
	earnPoints(t, db, hh, kid, 100)

	if _, _, err := svc.Claim(reward, kid, "", time.Now()); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	_, _, err := svc.Claim(reward, kid, "", time.Now())
	if !errors.Is(err, ErrClaimPending) {
		t.Errorf("second claim: got %v, want ErrClaimPending", err)
	}
}

func TestClaimIdempotencyReplay(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kid := seedProfile(t, db, hh, "Milo")
	reward := seedReward(t, db, hh, 25, nil)
	earnPoints(t, db, hh, kid, 100)

	first, bal1, err := svc.Claim(reward, kid, "retry-key-1", time.Now())
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	replay, bal2, err := svc.Claim(reward, kid, "retry-key-1", time.Now())
	if err != nil {
		t.Fatalf("replay claim: %v", err)
	}
	if replay.ID != first.ID {
		t.Errorf("replay returned a new claim: %s vs %s", replay.ID, first.ID)
	}
	if bal1 != 75 || bal2 != 75 {
		t.Errorf("balances = %d, %d, want 75 both times", bal1, bal2)
	}
}

func TestClaimOutOfStock(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kidA := seedProfile(t, db, hh, "Milo")
	kidB := seedProfile(t, db, hh, "June")
	stock := 1
	reward := seedReward(t, db, hh, 10, &stock)
	earnPoints(t, db, hh, kidA, 100)

	if _, _, err := svc.Claim(reward, kidA, "", time.Now()); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	// Stock runs out before the balance is even looked at, so a broke
	// profile sees the same error as a rich one.
	_, _, err := svc.Claim(reward, kidB, "", time.Now())
	if !errors.Is(err, ErrOutOfStock) {
		t.Errorf("got %v, want ErrOutOfStock", err)
	}
}

func TestRejectedClaimFreesStock(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kidA := seedProfile(t, db, hh, "Milo")
	kidB := seedProfile(t, db, hh, "June")
	parent := seedProfile(t, db, hh, "Dana")
	stock := 1
	reward := seedReward(t, db, hh, 10, &stock)
	earnPoints(t, db, hh, kidA, 50)
	earnPoints(t, db, hh, kidB, 50)

	claim, _, err := svc.Claim(reward, kidA, "", time.Now())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := svc.Reject(claim.ID, parent, "", time.Now()); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if _, _, err := svc.Claim(reward, kidB, "", time.Now()); err != nil {
		t.Errorf("claim after reject should succeed, got %v", err)
	}
}

func TestClaimInactiveReward(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kid := seedProfile(t, db, hh, "Milo")
	reward := seedReward(t, db, hh, 10, nil)
	earnPoints(t, db, hh, kid, 100)

	if _, err := db.Exec(`UPDATE rewards SET active = 0 WHERE id = ?`, reward); err != nil {
		t.Fatalf("deactivate reward: %v", err)
	}
	_, _, err := svc.Claim(reward, kid, "", time.Now())
	if !errors.Is(err, ErrRewardInactive) {
		t.Errorf("got %v, want ErrRewardInactive", err)
	}
}

func TestResolveRequiresPending(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kid := seedProfile(t, db, hh, "Milo")
	parent := seedProfile(t, db, hh, "Dana")
	reward := seedReward(t, db, hh, 10, nil)
	earnPoints(t, db, hh, kid, 100)

	claim, _, err := svc.Claim(reward, kid, "", time.Now())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := svc.Approve(claim.ID, parent, time.Now()); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.Approve(claim.ID, parent, time.Now()); !errors.Is(err, ErrClaimNotPending) {
		t.Errorf("double approve: got %v, want ErrClaimNotPending", err)
	}
	if _, err := svc.Reject(claim.ID, parent, "", time.Now()); !errors.Is(err, ErrClaimNotPending) {
		t.Errorf("reject after approve: got %v, want ErrClaimNotPending", err)
	}

	if _, err := svc.Approve("no-such-claim", parent, time.Now()); !errors.Is(err, ErrClaimNotFound) {
		t.Errorf("missing claim: got %v, want ErrClaimNotFound", err)
	}
}

func TestLeaderboardOrdersByBalance(t *testing.T) {
	svc, db := newTestService(t)
	hh := seedHousehold(t, db)
	kidA := seedProfile(t, db, hh, "Milo")
	kidB := seedProfile(t, db, hh, "June")
	earnPoints(t, db, hh, kidA, 40)
	earnPoints(t, db, hh, kidB, 90)

	board, err := svc.Leaderboard(hh)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("entries = %d, want 2", len(board))
	}
	if board[0].ProfileID != kidB {
		t.Errorf("first place = %d, want %d", board[0].ProfileID, kidB)
	}
	if board[0].Balance != 90 || board[1].Balance != 40 {
		t.Errorf("balances = %d, %d, want 90, 40", board[0].Balance, board[1].Balance)
	}
}
