package ride

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound      = errors.New("ride not found")
	ErrNotInProgress = errors.New("ride not in progress")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// StartTx opens a ride inside the unlock-approval transaction.
func (r *Repository) StartTx(ctx context.Context, tx *sqlx.Tx, bikeID, userID, planID uuid.UUID) (Ride, error) {
	var ride Ride
	err := tx.GetContext(ctx, &ride, startRideQuery, uuid.New(), bikeID, userID, planID)
	return ride, err
}

const startRideQuery = `
INSERT INTO rides (id, bike_id, user_id, plan_id, started_at, status)
VALUES ($1, $2, $3, $4, now(), 'IN_PROGRESS')
RETURNING *
`

// HasInProgressTx reports whether the user has an open ride, checked
// inside the caller's transaction so submit guards see a consistent view.
func (r *Repository) HasInProgressTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (bool, error) {
	var id uuid.UUID
	err := tx.GetContext(ctx, &id, hasInProgressQuery, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

const hasInProgressQuery = `SELECT id FROM rides WHERE user_id = $1 AND status = 'IN_PROGRESS' LIMIT 1`

// GetForUpdateTx locks the ride row for the settlement transaction.
func (r *Repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (Ride, error) {
	var ride Ride
	err := tx.GetContext(ctx, &ride, getRideForUpdateQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Ride{}, ErrNotFound
	}
	return ride, err
}

const getRideForUpdateQuery = `SELECT * FROM rides WHERE id = $1 FOR UPDATE`

// CompleteTx sets the end fields exactly once: IN_PROGRESS -> COMPLETED.
func (r *Repository) CompleteTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, endedAt time.Time, durationMinutes int, cost int64) (Ride, error) {
	var ride Ride
	err := tx.GetContext(ctx, &ride, completeRideQuery, endedAt, durationMinutes, cost, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Ride{}, ErrNotInProgress
	}
	return ride, err
}

const completeRideQuery = `
UPDATE rides
SET ended_at = $1, duration_minutes = $2, cost = $3, status = 'COMPLETED'
WHERE id = $4 AND status = 'IN_PROGRESS'
RETURNING *
`

// CancelTx abandons an open ride without charging: IN_PROGRESS -> CANCELLED.
func (r *Repository) CancelTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (Ride, error) {
	var ride Ride
	err := tx.GetContext(ctx, &ride, cancelRideQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Ride{}, ErrNotInProgress
	}
	return ride, err
}

const cancelRideQuery = `
UPDATE rides
SET ended_at = now(), status = 'CANCELLED'
WHERE id = $1 AND status = 'IN_PROGRESS'
RETURNING *
`

// CurrentForUser returns the user's open ride, if any.
func (r *Repository) CurrentForUser(ctx context.Context, userID uuid.UUID) (*Ride, error) {
	var ride Ride
	err := r.db.GetContext(ctx, &ride, currentForUserQuery, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

const currentForUserQuery = `SELECT * FROM rides WHERE user_id = $1 AND status = 'IN_PROGRESS'`

// ForUser lists the user's ride history, newest first.
func (r *Repository) ForUser(ctx context.Context, userID uuid.UUID) ([]Ride, error) {
	var rides []Ride
	err := r.db.SelectContext(ctx, &rides, ridesForUserQuery, userID)
	return rides, err
}

const ridesForUserQuery = `SELECT * FROM rides WHERE user_id = $1 ORDER BY started_at DESC`
