package coverage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Xybronix/EcoMobile-backend-sub000/tariff"
)

var (
	ErrNotFound     = errors.New("coverage not found")
	ErrCannotCancel = errors.New("cannot cancel coverage in its current state")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// ActiveForUserTx resolves the rider's coverage inside the caller's
// transaction: an ACTIVE or IN_USE reservation whose date range contains
// now wins; otherwise an active subscription; otherwise nil.
func (r *Repository) ActiveForUserTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, now time.Time) (*tariff.ActiveCoverage, error) {
	var res Reservation
	err := tx.GetContext(ctx, &res, activeReservationQuery, userID, now)
	if err == nil {
		return &tariff.ActiveCoverage{
			Type:    tariff.CoverageReservation,
			Package: res.Package,
			PlanID:  res.PlanID,
		}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var sub Subscription
	err = tx.GetContext(ctx, &sub, activeSubscriptionQuery, userID, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tariff.ActiveCoverage{
		Type:    tariff.CoverageSubscription,
		Package: sub.Package,
		PlanID:  sub.PlanID,
	}, nil
}

const activeReservationQuery = `
SELECT * FROM reservations
WHERE user_id = $1
  AND status IN ('ACTIVE', 'IN_USE')
  AND start_date <= $2
  AND end_date >= $2
ORDER BY start_date ASC
LIMIT 1
`

const activeSubscriptionQuery = `
SELECT * FROM subscriptions
WHERE user_id = $1
  AND is_active
  AND start_date <= $2
  AND end_date >= $2
ORDER BY start_date ASC
LIMIT 1
`

// MarkReservationInUseTx flags the rider's matching reservation IN_USE
// when an unlock for its bike is approved. No-op when none matches.
func (r *Repository) MarkReservationInUseTx(ctx context.Context, tx *sqlx.Tx, userID, bikeID uuid.UUID, now time.Time) error {
	_, err := tx.ExecContext(ctx, markReservationInUseQuery, userID, bikeID, now)
	return err
}

const markReservationInUseQuery = `
UPDATE reservations SET status = 'IN_USE'
WHERE user_id = $1 AND bike_id = $2 AND status = 'ACTIVE'
  AND start_date <= $3 AND end_date >= $3
`

// CompleteReservationTx marks the rider's matching ACTIVE/IN_USE
// reservation for this bike COMPLETED at lock settlement. Returns whether
// a reservation was completed.
func (r *Repository) CompleteReservationTx(ctx context.Context, tx *sqlx.Tx, userID, bikeID uuid.UUID, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, completeReservationQuery, userID, bikeID, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

const completeReservationQuery = `
UPDATE reservations SET status = 'COMPLETED'
WHERE user_id = $1 AND bike_id = $2 AND status IN ('ACTIVE', 'IN_USE')
  AND start_date <= $3 AND end_date >= $3
`

// ExpireReservations is the scheduled sweep cancelling reservations whose
// window lapsed without being used.
func (r *Repository) ExpireReservations(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, expireReservationsQuery, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const expireReservationsQuery = `
UPDATE reservations SET status = 'EXPIRED'
WHERE status = 'ACTIVE' AND end_date < $1
`

func (r *Repository) CreateReservation(ctx context.Context, res *Reservation) error {
	return r.db.GetContext(ctx, res, createReservationQuery,
		res.ID, res.UserID, res.BikeID, res.PlanID, res.Package, res.StartDate, res.EndDate)
}

const createReservationQuery = `
INSERT INTO reservations (id, user_id, bike_id, plan_id, package, start_date, end_date, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'ACTIVE', now())
RETURNING *
`

func (r *Repository) CreateSubscriptionTx(ctx context.Context, tx *sqlx.Tx, sub *Subscription) error {
	return tx.GetContext(ctx, sub, createSubscriptionQuery,
		sub.ID, sub.UserID, sub.PlanID, sub.Package, sub.StartDate, sub.EndDate)
}

const createSubscriptionQuery = `
INSERT INTO subscriptions (id, user_id, plan_id, package, start_date, end_date, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, true, now())
RETURNING *
`

// CancelReservation cancels a not-yet-used reservation owned by userID.
func (r *Repository) CancelReservation(ctx context.Context, id, userID uuid.UUID) (Reservation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Reservation{}, err
	}
	defer tx.Rollback()

	var res Reservation
	err = tx.GetContext(ctx, &res, getReservationForUpdateQuery, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Reservation{}, ErrNotFound
	}
	if err != nil {
		return Reservation{}, err
	}
	if res.Status != StatusActive {
		return Reservation{}, ErrCannotCancel
	}

	err = tx.GetContext(ctx, &res, cancelReservationQuery, id)
	if err != nil {
		return Reservation{}, err
	}
	return res, tx.Commit()
}

const getReservationForUpdateQuery = `SELECT * FROM reservations WHERE id = $1 AND user_id = $2 FOR UPDATE`

const cancelReservationQuery = `UPDATE reservations SET status = 'CANCELLED' WHERE id = $1 RETURNING *`

func (r *Repository) SubscriptionsForUser(ctx context.Context, userID uuid.UUID) ([]Subscription, error) {
	var subs []Subscription
	err := r.db.SelectContext(ctx, &subs, subscriptionsForUserQuery, userID)
	return subs, err
}

const subscriptionsForUserQuery = `SELECT * FROM subscriptions WHERE user_id = $1 ORDER BY start_date DESC`

func (r *Repository) ReservationsForUser(ctx context.Context, userID uuid.UUID) ([]Reservation, error) {
	var res []Reservation
	err := r.db.SelectContext(ctx, &res, reservationsForUserQuery, userID)
	return res, err
}

const reservationsForUserQuery = `SELECT * FROM reservations WHERE user_id = $1 ORDER BY start_date DESC`
