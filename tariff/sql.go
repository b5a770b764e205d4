package tariff

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrPlanNotFound = errors.New("pricing plan not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetPlan(ctx context.Context, id uuid.UUID) (Plan, error) {
	var p Plan
	err := r.db.GetContext(ctx, &p, getPlanQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, ErrPlanNotFound
	}
	return p, err
}

const getPlanQuery = `SELECT * FROM pricing_plans WHERE id = $1`

// DefaultPlan is the plan applied to riders with no active coverage.
func (r *Repository) DefaultPlan(ctx context.Context) (Plan, error) {
	var p Plan
	err := r.db.GetContext(ctx, &p, defaultPlanQuery)
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, ErrPlanNotFound
	}
	return p, err
}

const defaultPlanQuery = `SELECT * FROM pricing_plans WHERE active ORDER BY created_at ASC LIMIT 1`

func (r *Repository) GetPlans(ctx context.Context) ([]Plan, error) {
	var plans []Plan
	err := r.db.SelectContext(ctx, &plans, getPlansQuery)
	return plans, err
}

const getPlansQuery = `SELECT * FROM pricing_plans ORDER BY created_at ASC`

// OverrideForPlan returns nil when the plan has no override row.
func (r *Repository) OverrideForPlan(ctx context.Context, planID uuid.UUID) (*Override, error) {
	var o Override
	err := r.db.GetContext(ctx, &o, overrideForPlanQuery, planID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

const overrideForPlanQuery = `SELECT * FROM plan_overrides WHERE plan_id = $1`
