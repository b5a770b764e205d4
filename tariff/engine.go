package tariff

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ActiveCoverage identifies the subscription or reservation offsetting a
// rider's cost. A reservation always wins over a subscription.
type ActiveCoverage struct {
	Type    CoverageType
	Package PackageType
	PlanID  uuid.UUID
}

// CoverageSource resolves a rider's active coverage inside the caller's
// transaction so that settlement and coverage read the same snapshot.
type CoverageSource interface {
	ActiveForUserTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, now time.Time) (*ActiveCoverage, error)
}

type Engine struct {
	plans    *Repository
	coverage CoverageSource
}

func NewEngine(plans *Repository, coverage CoverageSource) *Engine {
	return &Engine{plans: plans, coverage: coverage}
}

// QuoteRideTx prices a ride inside the settlement transaction. planID is
// the plan captured on the ride at unlock time, so historical rides stay
// reproducible even after plan configuration changes.
func (e *Engine) QuoteRideTx(ctx context.Context, tx *sqlx.Tx, userID, planID uuid.UUID, durationMinutes int, startedAt time.Time) (Quote, error) {
	plan, err := e.plans.GetPlan(ctx, planID)
	if err != nil {
		return Quote{}, err
	}

	override, err := e.plans.OverrideForPlan(ctx, planID)
	if err != nil {
		return Quote{}, err
	}

	in := Input{
		Plan:            plan,
		Override:        override,
		Coverage:        CoverageNone,
		DurationMinutes: durationMinutes,
		StartTime:       startedAt,
	}

	active, err := e.coverage.ActiveForUserTx(ctx, tx, userID, time.Now())
	if err != nil {
		return Quote{}, err
	}
	if active != nil {
		in.Coverage = active.Type
		in.Package = active.Package
	}

	return Calculate(in), nil
}

// EffectivePlan is the plan to capture on a ride starting now: the active
// coverage's plan when one exists, the default plan otherwise.
func (e *Engine) EffectivePlan(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (Plan, error) {
	active, err := e.coverage.ActiveForUserTx(ctx, tx, userID, time.Now())
	if err != nil {
		return Plan{}, err
	}
	if active != nil {
		return e.plans.GetPlan(ctx, active.PlanID)
	}
	return e.plans.DefaultPlan(ctx)
}
