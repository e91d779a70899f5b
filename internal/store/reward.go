package store

import (
	"database/sql"
	"fmt"

	"github.com/mhollis/chorequest/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

const rewardCols = `id, household_id, title, description, category, point_cost, stock, active, created_at, updated_at`

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var stock sql.NullInt64
	var active int

	err := scanner.Scan(
		&r.ID, &r.HouseholdID, &r.Title, &r.Description, &r.Category,
		&r.PointCost, &stock, &active, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if stock.Valid {
		n := int(stock.Int64)
		r.Stock = &n
	}
	r.Active = active != 0
	return &r, nil
}

func (s *RewardStore) Create(householdID int64, title, description, category string, pointCost int, stock *int, active bool) (*model.Reward, error) {
	var st sql.NullInt64
	if stock != nil {
		st = sql.NullInt64{Int64: int64(*stock), Valid: true}
	}
	var a int
	if active {
		a = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO rewards (household_id, title, description, category, point_cost, stock, active) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		householdID, title, description, category, pointCost, st, a,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// List returns all rewards for the household, active first, then by title.
func (s *RewardStore) List(householdID int64) ([]model.Reward, error) {
	rows, err := s.db.Query(
		`SELECT `+rewardCols+` FROM rewards WHERE household_id = ? ORDER BY active DESC, title ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(id int64, title, description, category string, pointCost int, stock *int, active bool) (*model.Reward, error) {
	var st sql.NullInt64
	if stock != nil {
		st = sql.NullInt64{Int64: int64(*stock), Valid: true}
	}
	var a int
	if active {
		a = 1
	}

	_, err := s.db.Exec(
		`UPDATE rewards SET title = ?, description = ?, category = ?, point_cost = ?, stock = ?, active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, description, category, pointCost, st, a, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}

// --- Claim read methods. Claim writes live in the points service, which
// needs them inside its settlement transaction. ---

const claimCols = `id, reward_id, profile_id, points_spent, status, idempotency_key, claimed_at, resolved_at, resolved_by, reject_reason, cooldown_until`

func scanClaim(scanner interface{ Scan(...any) error }) (*model.RewardClaim, error) {
	var c model.RewardClaim
	var idemKey sql.NullString
	var resolvedAt, cooldownUntil sql.NullTime
	var resolvedBy sql.NullInt64

	err := scanner.Scan(
		&c.ID, &c.RewardID, &c.ProfileID, &c.PointsSpent, &c.Status,
		&idemKey, &c.ClaimedAt, &resolvedAt, &resolvedBy, &c.RejectReason, &cooldownUntil,
	)
	if err != nil {
		return nil, err
	}

	if idemKey.Valid {
		c.IdempotencyKey = &idemKey.String
	}
	if resolvedAt.Valid {
		c.ResolvedAt = &resolvedAt.Time
	}
	if resolvedBy.Valid {
		c.ResolvedBy = &resolvedBy.Int64
	}
	if cooldownUntil.Valid {
		c.CooldownUntil = &cooldownUntil.Time
	}
	return &c, nil
}

func (s *RewardStore) GetClaim(id string) (*model.RewardClaim, error) {
	row := s.db.QueryRow(`SELECT `+claimCols+` FROM reward_claims WHERE id = ?`, id)
	c, err := scanClaim(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return c, nil
}

func (s *RewardStore) ListClaimsByReward(rewardID int64) ([]model.RewardClaim, error) {
	return s.listClaims(`reward_id = ?`, rewardID)
}

func (s *RewardStore) ListClaimsByProfile(profileID int64) ([]model.RewardClaim, error) {
	return s.listClaims(`profile_id = ?`, profileID)
}

// ListPendingClaims returns the household's claims awaiting review.
func (s *RewardStore) ListPendingClaims(householdID int64) ([]model.RewardClaim, error) {
	return s.listClaims(
		`status = 'pending' AND reward_id IN (SELECT id FROM rewards WHERE household_id = ?)`,
		householdID,
	)
}

func (s *RewardStore) listClaims(where string, args ...any) ([]model.RewardClaim, error) {
	rows, err := s.db.Query(
		`SELECT `+claimCols+` FROM reward_claims WHERE `+where+` ORDER BY claimed_at DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []model.RewardClaim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}
