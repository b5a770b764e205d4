// Package request models bike access requests: a rider asks to unlock or
// lock a bike, an admin approves or rejects. PENDING is the only
// non-terminal state, and every transition happens under a row lock so
// two admins can never both approve the same request.
package request

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

type Kind string

const (
	KindUnlock Kind = "unlock"
	KindLock   Kind = "lock"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// UnlockRequest asks for a bike to be unlocked. At most one PENDING
// unlock request exists per rider at any time.
type UnlockRequest struct {
	ID     uuid.UUID
	UserID uuid.UUID `db:"user_id"`
	BikeID uuid.UUID `db:"bike_id"`
	Status Status

	// Photos holds storage keys of inspection images uploaded with the
	// request (jsonb array).
	Photos types.JSONText

	ProcessedBy  uuid.NullUUID  `db:"processed_by"`
	ProcessedAt  sql.NullTime   `db:"processed_at"`
	RejectReason sql.NullString `db:"reject_reason"`
	CreatedAt    time.Time      `db:"created_at"`
}

// LockRequest asks for a bike to be locked back, closing the referenced
// ride. Lat/Lng are the GPS-reported return coordinates.
type LockRequest struct {
	ID     uuid.UUID
	UserID uuid.UUID     `db:"user_id"`
	BikeID uuid.UUID     `db:"bike_id"`
	RideID uuid.NullUUID `db:"ride_id"`
	Status Status

	Lat float64
	Lng float64

	Photos types.JSONText

	ProcessedBy  uuid.NullUUID  `db:"processed_by"`
	ProcessedAt  sql.NullTime   `db:"processed_at"`
	RejectReason sql.NullString `db:"reject_reason"`
	CreatedAt    time.Time      `db:"created_at"`
}
