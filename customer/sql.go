package customer

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
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

var ErrNotFound = errors.New("customer not found")

func (r *Repository) GetCustomerByAuth0ID(ctx context.Context, auth0ID string) (*Customer, error) {
	var customer Customer
	err := r.db.GetContext(ctx, &customer, getCustomerByAuth0IDQuery, auth0ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}
	return &customer, nil
}

const getCustomerByAuth0IDQuery = "SELECT * FROM customers WHERE auth0_id = $1"

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	var customer Customer
	err := r.db.GetContext(ctx, &customer, getCustomerByIDQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

const getCustomerByIDQuery = "SELECT * FROM customers WHERE id = $1"

func (r *Repository) CreateCustomer(ctx context.Context, auth0ID string) (*Customer, error) {
	var customer Customer
	err := r.db.GetContext(ctx, &customer, createCustomerQuery, uuid.New(), auth0ID)
	return &customer, err
}

const createCustomerQuery = "INSERT INTO customers (id, auth0_id) VALUES ($1, $2) RETURNING *"

func (r *Repository) UpdateProfile(ctx context.Context, auth0ID, email, name string) error {
	_, err := r.db.ExecContext(ctx, updateProfileQuery, email, name, auth0ID)
	return err
}

const updateProfileQuery = `UPDATE customers SET email = $1, name = $2 WHERE auth0_id = $3`

// SetDepositExemption grants or revokes a time-limited waiver of the
// minimum-deposit unlock guard. A NULL until revokes.
func (r *Repository) SetDepositExemption(ctx context.Context, id uuid.UUID, until sql.NullTime) error {
	_, err := r.db.ExecContext(ctx, setDepositExemptionQuery, until, id)
	return err
}

const setDepositExemptionQuery = `UPDATE customers SET deposit_exempt_until = $1 WHERE id = $2`
