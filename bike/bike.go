// Package bike
package bike

import (
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusInUse       Status = "IN_USE"
	StatusMaintenance Status = "MAINTENANCE"
	StatusUnavailable Status = "UNAVAILABLE"
)

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// Bike represents a bike riders unlock and lock through access requests.
type Bike struct {
	// ID is an internal identifier for a bike
	ID uuid.UUID
	// Label is a physical label which is on the bike. It should be scannable (e.g. "ECO-123")
	// in QR Code or Code-128 format.
	Label string
	// IMEI is the identifier of the SIM card used in the bike. This is what is transmitted by the lock
	IMEI string

	// Location is the last GPS-reported position; rewritten with the
	// reported return coordinates when a lock request is approved.
	Location pgtype.Point

	BatteryVoltage int `db:"battery_voltage"`

	Status Status

	StationID *uuid.UUID `db:"station_id"`

	// DisplayName is a user-friendly name for the bike type (e.g., "Bergamont Cargoville LJ")
	DisplayName *string `db:"display_name"`
	// ImageURL is a URL to an image of the bike
	ImageURL *string `db:"image_url"`
}
