package ride

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Ride is one rider's use of one bike between an approved unlock and an
// approved lock. PlanID is the pricing plan in effect at start, captured
// so historical rides stay reproducible when plan configuration changes.
// End fields are set exactly once, at completion.
type Ride struct {
	ID     uuid.UUID
	BikeID uuid.UUID `db:"bike_id"`
	UserID uuid.UUID `db:"user_id"`
	PlanID uuid.UUID `db:"plan_id"`

	StartedAt       time.Time     `db:"started_at"`
	EndedAt         sql.NullTime  `db:"ended_at"`
	DurationMinutes sql.NullInt32 `db:"duration_minutes"`
	Cost            sql.NullInt64 `db:"cost"`

	Status Status
}
