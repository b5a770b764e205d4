package station

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetStations(ctx context.Context) ([]Station, error) {
	var stations []Station
	err := r.db.SelectContext(ctx, &stations, getStations)
	return stations, err
}

const getStations = `SELECT * FROM stations`

func (r *Repository) GetStation(ctx context.Context, id string) (Station, error) {
	var station Station
	err := r.db.GetContext(ctx, &station, getStation, id)
	return station, err
}

const getStation = `SELECT * FROM stations WHERE id = $1`
