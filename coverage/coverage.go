// Package coverage models the two ways a rider pre-pays for ride time: a
// Subscription (fee coverage for a date range) and a Reservation (the
// same, bound to one bike). A reservation always takes precedence over a
// subscription when both are active.
package coverage

import (
	"time"

	"github.com/google/uuid"

	"github.com/Xybronix/EcoMobile-backend-sub000/tariff"
)

type ReservationStatus string

const (
	StatusActive    ReservationStatus = "ACTIVE"
	StatusInUse     ReservationStatus = "IN_USE"
	StatusCompleted ReservationStatus = "COMPLETED"
	StatusCancelled ReservationStatus = "CANCELLED"
	StatusExpired   ReservationStatus = "EXPIRED"
)

type Subscription struct {
	ID        uuid.UUID
	UserID    uuid.UUID          `db:"user_id"`
	PlanID    uuid.UUID          `db:"plan_id"`
	Package   tariff.PackageType `db:"package"`
	StartDate time.Time          `db:"start_date"`
	EndDate   time.Time          `db:"end_date"`
	IsActive  bool               `db:"is_active"`
	CreatedAt time.Time          `db:"created_at"`
}

// Covers reports whether the subscription grants coverage at t.
func (s Subscription) Covers(t time.Time) bool {
	return s.IsActive && !s.StartDate.After(t) && !s.EndDate.Before(t)
}

type Reservation struct {
	ID        uuid.UUID
	UserID    uuid.UUID          `db:"user_id"`
	BikeID    uuid.UUID          `db:"bike_id"`
	PlanID    uuid.UUID          `db:"plan_id"`
	Package   tariff.PackageType `db:"package"`
	StartDate time.Time          `db:"start_date"`
	EndDate   time.Time          `db:"end_date"`
	Status    ReservationStatus
	CreatedAt time.Time `db:"created_at"`
}

// Covers reports whether the reservation grants coverage at t.
func (r Reservation) Covers(t time.Time) bool {
	if r.Status != StatusActive && r.Status != StatusInUse {
		return false
	}
	return !r.StartDate.After(t) && !r.EndDate.Before(t)
}
