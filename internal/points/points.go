// Package points settles reward claims against the point ledger. A profile's
// balance is derived, never stored: points earned from task completions minus
// points held by non-rejected claims. Rejecting a claim refunds by simply
// dropping it from the spent side, so a claim+reject round trip conserves the
// balance exactly and there is no second copy to keep in sync.
package points

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mhollis/chorequest/internal/model"
)

// Rejected claims carry a cooldown before the reward can be claimed again.
const rejectCooldown = 24 * time.Hour

var (
	ErrRewardNotFound  = errors.New("reward not found")
	ErrRewardInactive  = errors.New("reward is not active")
	ErrOutOfStock      = errors.New("reward is out of stock")
	ErrClaimPending    = errors.New("a claim for this reward is already pending")
	ErrCooldownActive  = errors.New("reward claim is in cooldown")
	ErrClaimNotFound   = errors.New("claim not found")
	ErrClaimNotPending = errors.New("claim is not pending")
)

// InsufficientPointsError reports how far short the claimant's balance falls.
type InsufficientPointsError struct {
	Cost      int
	Balance   int
	Shortfall int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: need %d, have %d (short %d)", e.Cost, e.Balance, e.Shortfall)
}

type Service struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

func balanceParts(q querier, profileID int64) (earned, spent int, err error) {
	var e, sp sql.NullInt64
	if err := q.QueryRow(
		`SELECT COALESCE(SUM(points_earned), 0) FROM task_completions WHERE completed_by = ?`,
		profileID,
	).Scan(&e); err != nil {
		return 0, 0, fmt.Errorf("sum points earned: %w", err)
	}
	if err := q.QueryRow(
		`SELECT COALESCE(SUM(points_spent), 0) FROM reward_claims WHERE profile_id = ? AND status != 'rejected'`,
		profileID,
	).Scan(&sp); err != nil {
		return 0, 0, fmt.Errorf("sum points spent: %w", err)
	}
	return int(e.Int64), int(sp.Int64), nil
}

// Balance computes the profile's current balance from the ledgers.
func (s *Service) Balance(profileID int64) (*model.PointBalance, error) {
	earned, spent, err := balanceParts(s.db, profileID)
	if err != nil {
		return nil, err
	}

	var name string
	err = s.db.QueryRow(`SELECT name FROM profiles WHERE id = ?`, profileID).Scan(&name)
	if err == sql.ErrNoRows {
		name = "Unknown"
	} else if err != nil {
		return nil, fmt.Errorf("get profile name: %w", err)
	}

	return &model.PointBalance{
		ProfileID:   profileID,
		ProfileName: name,
		TotalEarned: earned,
		TotalSpent:  spent,
		Balance:     earned - spent,
	}, nil
}

// Leaderboard returns balances for every profile in the household, ordered
// by balance descending.
func (s *Service) Leaderboard(householdID int64) ([]model.PointBalance, error) {
	rows, err := s.db.Query(
		`SELECT id, name FROM profiles WHERE household_id = ? ORDER BY sort_order ASC, name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	type profileInfo struct {
		ID   int64
		Name string
	}
	var profiles []profileInfo
	for rows.Next() {
		var p profileInfo
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}

	var balances []model.PointBalance
	for _, p := range profiles {
		earned, spent, err := balanceParts(s.db, p.ID)
		if err != nil {
			return nil, fmt.Errorf("balance for profile %d: %w", p.ID, err)
		}
		balances = append(balances, model.PointBalance{
			ProfileID:   p.ID,
			ProfileName: p.Name,
			TotalEarned: earned,
			TotalSpent:  spent,
			Balance:     earned - spent,
		})
	}

	sort.SliceStable(balances, func(i, j int) bool {
		return balances[i].Balance > balances[j].Balance
	})

	return balances, nil
}

// Claim attempts to spend points on a reward. The whole check-and-insert runs
// in one transaction so concurrent claims cannot overspend or oversell.
// idempotencyKey may be empty; when set, replaying the same key returns the
// original claim without a second deduction.
func (s *Service) Claim(rewardID, profileID int64, idempotencyKey string, now time.Time) (*model.RewardClaim, int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Idempotent replay
	if idempotencyKey != "" {
		existing, err := claimWhere(tx, `idempotency_key = ?`, idempotencyKey)
		if err != nil {
			return nil, 0, err
		}
		if existing != nil {
			earned, spent, err := balanceParts(tx, profileID)
			if err != nil {
				return nil, 0, err
			}
			return existing, earned - spent, nil
		}
	}

	var cost int
	var stock sql.NullInt64
	var active int
	err = tx.QueryRow(
		`SELECT point_cost, stock, active FROM rewards WHERE id = ?`, rewardID,
	).Scan(&cost, &stock, &active)
	if err == sql.ErrNoRows {
		return nil, 0, ErrRewardNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get reward: %w", err)
	}
	if active == 0 {
		return nil, 0, ErrRewardInactive
	}

	// One pending claim per reward per profile
	var pending int
	if err := tx.QueryRow(
		`SELECT COUNT(*) FROM reward_claims WHERE reward_id = ? AND profile_id = ? AND status = 'pending'`,
		rewardID, profileID,
	).Scan(&pending); err != nil {
		return nil, 0, fmt.Errorf("count pending claims: %w", err)
	}
	if pending > 0 {
		return nil, 0, ErrClaimPending
	}

	// Rejection cooldown
	var cooling int
	if err := tx.QueryRow(
		`SELECT COUNT(*) FROM reward_claims WHERE reward_id = ? AND profile_id = ? AND status = 'rejected' AND cooldown_until > ?`,
		rewardID, profileID, now.UTC(),
	).Scan(&cooling); err != nil {
		return nil, 0, fmt.Errorf("count cooldowns: %w", err)
	}
	if cooling > 0 {
		return nil, 0, ErrCooldownActive
	}

	// Stock is consumed by every non-rejected claim. Checked before the
	// balance so an out-of-stock reward fails the same way for everyone.
	if stock.Valid {
		var taken int
		if err := tx.QueryRow(
			`SELECT COUNT(*) FROM reward_claims WHERE reward_id = ? AND status != 'rejected'`,
			rewardID,
		).Scan(&taken); err != nil {
			return nil, 0, fmt.Errorf("count stock: %w", err)
		}
		if int64(taken) >= stock.Int64 {
			return nil, 0, ErrOutOfStock
		}
	}

	earned, spent, err := balanceParts(tx, profileID)
	if err != nil {
		return nil, 0, err
	}
	balance := earned - spent
	if balance < cost {
		return nil, 0, &InsufficientPointsError{Cost: cost, Balance: balance, Shortfall: cost - balance}
	}

	id := uuid.NewString()
	var idemKey sql.NullString
	if idempotencyKey != "" {
		idemKey = sql.NullString{String: idempotencyKey, Valid: true}
	}
	if _, err := tx.Exec(
		`INSERT INTO reward_claims (id, reward_id, profile_id, points_spent, status, idempotency_key, claimed_at) VALUES (?, ?, ?, ?, 'pending', ?, ?)`,
		id, rewardID, profileID, cost, idemKey, now.UTC(),
	); err != nil {
		return nil, 0, fmt.Errorf("insert claim: %w", err)
	}

	claim, err := claimWhere(tx, `id = ?`, id)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("reward claimed",
		"claim_id", id, "reward_id", rewardID, "profile_id", profileID, "cost", cost,
	)
	return claim, balance - cost, nil
}

// Approve marks a pending claim approved. Stock and balance were settled at
// claim time and are not re-validated.
func (s *Service) Approve(claimID string, resolvedBy int64, now time.Time) (*model.RewardClaim, error) {
	return s.resolve(claimID, resolvedBy, model.ClaimApproved, "", now)
}

// Reject marks a pending claim rejected, which refunds the points (rejected
// claims no longer count against the ledger) and starts a re-claim cooldown.
// The claim record is kept so the history stays visible.
func (s *Service) Reject(claimID string, resolvedBy int64, reason string, now time.Time) (*model.RewardClaim, error) {
	return s.resolve(claimID, resolvedBy, model.ClaimRejected, reason, now)
}

func (s *Service) resolve(claimID string, resolvedBy int64, status, reason string, now time.Time) (*model.RewardClaim, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := claimWhere(tx, `id = ?`, claimID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrClaimNotFound
	}
	if existing.Status != model.ClaimPending {
		return nil, ErrClaimNotPending
	}

	var cooldown sql.NullTime
	if status == model.ClaimRejected {
		cooldown = sql.NullTime{Time: now.UTC().Add(rejectCooldown), Valid: true}
	}

	if _, err := tx.Exec(
		`UPDATE reward_claims SET status = ?, resolved_at = ?, resolved_by = ?, reject_reason = ?, cooldown_until = ? WHERE id = ?`,
		status, now.UTC(), resolvedBy, reason, cooldown, claimID,
	); err != nil {
		return nil, fmt.Errorf("resolve claim: %w", err)
	}

	claim, err := claimWhere(tx, `id = ?`, claimID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("claim resolved", "claim_id", claimID, "status", status, "resolved_by", resolvedBy)
	return claim, nil
}

func claimWhere(q querier, where string, args ...any) (*model.RewardClaim, error) {
	row := q.QueryRow(
		`SELECT id, reward_id, profile_id, points_spent, status, idempotency_key, claimed_at, resolved_at, resolved_by, reject_reason, cooldown_until FROM reward_claims WHERE `+where,
		args...,
	)

	var c model.RewardClaim
	var idemKey sql.NullString
	var resolvedAt, cooldownUntil sql.NullTime
	var rBy sql.NullInt64

	err := row.Scan(
		&c.ID, &c.RewardID, &c.ProfileID, &c.PointsSpent, &c.Status,
		&idemKey, &c.ClaimedAt, &resolvedAt, &rBy, &c.RejectReason, &cooldownUntil,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}

	if idemKey.Valid {
		c.IdempotencyKey = &idemKey.String
	}
	if resolvedAt.Valid {
		c.ResolvedAt = &resolvedAt.Time
	}
	if rBy.Valid {
		c.ResolvedBy = &rBy.Int64
	}
	if cooldownUntil.Valid {
		c.CooldownUntil = &cooldownUntil.Time
	}
	return &c, nil
}
