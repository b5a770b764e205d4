package customer

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID      uuid.UUID
	Auth0ID string         `db:"auth0_id"`
	Email   sql.NullString `db:"email"`
	Name    sql.NullString `db:"name"`

	// DepositExemptUntil waives the minimum-deposit check on unlock
	// requests until the given time (e.g. promotional riders).
	DepositExemptUntil sql.NullTime `db:"deposit_exempt_until"`

	IsAdmin   bool      `db:"is_admin"`
	CreatedAt time.Time `db:"created_at"`
}

// DepositExempt reports whether the customer's deposit exemption is
// active at t.
func (c Customer) DepositExempt(t time.Time) bool {
	return c.DepositExemptUntil.Valid && c.DepositExemptUntil.Time.After(t)
}
