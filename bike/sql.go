package bike

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNotAvailable = errors.New("bike not available")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetBikes(ctx context.Context) ([]Bike, error) {
	var bikes []Bike
	err := r.db.SelectContext(ctx, &bikes, getBikes)
	return bikes, err
}

const getBikes = `SELECT * FROM bikes`

func (r *Repository) GetBike(ctx context.Context, label string) (Bike, error) {
	var bike Bike

	err := r.db.GetContext(ctx, &bike, getBike, label)
	if errors.Is(err, sql.ErrNoRows) {
		return bike, ErrNotFound
	}

	return bike, err
}

const getBike = `SELECT * FROM bikes WHERE label = $1`

// GetBikeByID fetches a bike by its UUID.
func (r *Repository) GetBikeByID(ctx context.Context, id uuid.UUID) (Bike, error) {
	var bike Bike
	err := r.db.GetContext(ctx, &bike, getBikeByID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return bike, ErrNotFound
	}
	return bike, err
}

const getBikeByID = `SELECT * FROM bikes WHERE id = $1`

// GetForUpdateTx locks the bike row for the remainder of tx so that
// concurrent approvals serialize on it.
func (r *Repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (Bike, error) {
	var bike Bike
	err := tx.GetContext(ctx, &bike, getBikeForUpdate, id)
	if errors.Is(err, sql.ErrNoRows) {
		return bike, ErrNotFound
	}
	return bike, err
}

const getBikeForUpdate = `SELECT * FROM bikes WHERE id = $1 FOR UPDATE`

// SetStatusTx flips the bike's status inside the caller's transaction.
func (r *Repository) SetStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status Status) error {
	_, err := tx.ExecContext(ctx, setStatus, status, id)
	return err
}

const setStatus = `UPDATE bikes SET status = $1 WHERE id = $2`

// SetStatusAndLocationTx flips the status and records the GPS-reported
// position in one statement.
func (r *Repository) SetStatusAndLocationTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status Status, lat, lng float64) error {
	_, err := tx.ExecContext(ctx, setStatusAndLocation, status, lat, lng, id)
	return err
}

const setStatusAndLocation = `UPDATE bikes SET status = $1, location = point($2, $3) WHERE id = $4`

// BikeWithStation represents a bike with its station info for listings.
type BikeWithStation struct {
	Bike
	StationName string `db:"station_name"`
}

// GetBikesWithStations fetches all bikes with their station info.
func (r *Repository) GetBikesWithStations(ctx context.Context, stationID *string) ([]BikeWithStation, error) {
	var bikes []BikeWithStation
	var err error
	if stationID != nil {
		err = r.db.SelectContext(ctx, &bikes, getBikesWithStationsByStation, *stationID)
	} else {
		err = r.db.SelectContext(ctx, &bikes, getBikesWithStations)
	}
	return bikes, err
}

const getBikesWithStations = `
SELECT b.*, COALESCE(s.name, '') as station_name
FROM bikes b
LEFT JOIN stations s ON b.station_id = s.id
`

const getBikesWithStationsByStation = `
SELECT b.*, COALESCE(s.name, '') as station_name
FROM bikes b
LEFT JOIN stations s ON b.station_id = s.id
WHERE b.station_id = $1
`
