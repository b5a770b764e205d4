package station

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Type distinguishes physical docking stations from designated
// free-floating parking zones.
type Type string

const (
	TypeDocking      Type = "DOCKING"
	TypeFreeFloating Type = "FREE_FLOATING"
)

type Station struct {
	ID           uuid.UUID
	Name         string
	Address      string
	OpeningHours string `db:"opening_hours"`
	Location     pgtype.Point
	Type         Type `db:"station_type"`
}
