package request

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

var (
	ErrNotFound         = errors.New("request not found")
	ErrDuplicatePending = errors.New("rider already has a pending unlock request")
	ErrAlreadyProcessed = errors.New("request already processed")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// CreateUnlockTx inserts a PENDING unlock request after a locked
// duplicate check inside the same transaction. The FOR UPDATE keeps two
// concurrent submissions from both passing the check; combined with the
// partial unique index on (user_id) WHERE status = 'PENDING', at most
// one PENDING row per rider can ever exist.
func (r *Repository) CreateUnlockTx(ctx context.Context, tx *sqlx.Tx, userID, bikeID uuid.UUID, photos []string) (UnlockRequest, error) {
	var existing uuid.UUID
	err := tx.GetContext(ctx, &existing, checkPendingUnlockQuery, userID)
	if err == nil {
		return UnlockRequest{}, ErrDuplicatePending
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return UnlockRequest{}, err
	}

	var req UnlockRequest
	err = tx.GetContext(ctx, &req, createUnlockQuery, uuid.New(), userID, bikeID, photosJSON(photos))
	if isUniqueViolation(err) {
		// Two submissions raced past the check; the index caught the loser.
		return UnlockRequest{}, ErrDuplicatePending
	}
	return req, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const checkPendingUnlockQuery = `
SELECT id FROM unlock_requests WHERE user_id = $1 AND status = 'PENDING' FOR UPDATE
`

const createUnlockQuery = `
INSERT INTO unlock_requests (id, user_id, bike_id, status, photos, created_at)
VALUES ($1, $2, $3, 'PENDING', $4, now())
RETURNING *
`

// CreateLock inserts a PENDING lock request. Lock requests carry the
// GPS-reported return position and reference the open ride being closed.
func (r *Repository) CreateLock(ctx context.Context, userID, bikeID uuid.UUID, rideID uuid.NullUUID, lat, lng float64, photos []string) (LockRequest, error) {
	var req LockRequest
	err := r.db.GetContext(ctx, &req, createLockQuery, uuid.New(), userID, bikeID, rideID, lat, lng, photosJSON(photos))
	return req, err
}

const createLockQuery = `
INSERT INTO lock_requests (id, user_id, bike_id, ride_id, status, lat, lng, photos, created_at)
VALUES ($1, $2, $3, $4, 'PENDING', $5, $6, $7, now())
RETURNING *
`

// GetUnlockForUpdateTx locks the unlock request row for the approval
// transaction.
func (r *Repository) GetUnlockForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (UnlockRequest, error) {
	var req UnlockRequest
	err := tx.GetContext(ctx, &req, getUnlockForUpdateQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return UnlockRequest{}, ErrNotFound
	}
	return req, err
}

const getUnlockForUpdateQuery = `SELECT * FROM unlock_requests WHERE id = $1 FOR UPDATE`

func (r *Repository) GetLockForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (LockRequest, error) {
	var req LockRequest
	err := tx.GetContext(ctx, &req, getLockForUpdateQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return LockRequest{}, ErrNotFound
	}
	return req, err
}

const getLockForUpdateQuery = `SELECT * FROM lock_requests WHERE id = $1 FOR UPDATE`

// ApproveTx transitions PENDING -> APPROVED. The status predicate makes
// approval idempotent-by-construction: a request that already left
// PENDING is never re-processed.
func (r *Repository) ApproveTx(ctx context.Context, tx *sqlx.Tx, kind Kind, id, adminID uuid.UUID) error {
	res, err := tx.ExecContext(ctx, approveQuery(kind), adminID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}

func approveQuery(kind Kind) string {
	if kind == KindLock {
		return `UPDATE lock_requests SET status = 'APPROVED', processed_by = $1, processed_at = now() WHERE id = $2 AND status = 'PENDING'`
	}
	return `UPDATE unlock_requests SET status = 'APPROVED', processed_by = $1, processed_at = now() WHERE id = $2 AND status = 'PENDING'`
}

// RejectTx transitions PENDING -> REJECTED with the admin's reason.
func (r *Repository) RejectTx(ctx context.Context, tx *sqlx.Tx, kind Kind, id, adminID uuid.UUID, reason string) error {
	res, err := tx.ExecContext(ctx, rejectQuery(kind), adminID, reason, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}

func rejectQuery(kind Kind) string {
	if kind == KindLock {
		return `UPDATE lock_requests SET status = 'REJECTED', processed_by = $1, processed_at = now(), reject_reason = $2 WHERE id = $3 AND status = 'PENDING'`
	}
	return `UPDATE unlock_requests SET status = 'REJECTED', processed_by = $1, processed_at = now(), reject_reason = $2 WHERE id = $3 AND status = 'PENDING'`
}

// Delete removes a request row and returns the storage keys of its
// inspection photos so the caller can remove the stored images. This is
// the only path that deletes requests.
func (r *Repository) Delete(ctx context.Context, kind Kind, id uuid.UUID) ([]string, error) {
	var photos types.JSONText
	err := r.db.GetContext(ctx, &photos, deleteQuery(kind), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var keys []string
	if err := json.Unmarshal(photos, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func deleteQuery(kind Kind) string {
	if kind == KindLock {
		return `DELETE FROM lock_requests WHERE id = $1 RETURNING photos`
	}
	return `DELETE FROM unlock_requests WHERE id = $1 RETURNING photos`
}

// PendingUnlocks lists PENDING unlock requests for the admin dashboard,
// oldest first.
func (r *Repository) PendingUnlocks(ctx context.Context) ([]UnlockRequest, error) {
	var reqs []UnlockRequest
	err := r.db.SelectContext(ctx, &reqs, pendingUnlocksQuery)
	return reqs, err
}

const pendingUnlocksQuery = `SELECT * FROM unlock_requests WHERE status = 'PENDING' ORDER BY created_at ASC`

func (r *Repository) PendingLocks(ctx context.Context) ([]LockRequest, error) {
	var reqs []LockRequest
	err := r.db.SelectContext(ctx, &reqs, pendingLocksQuery)
	return reqs, err
}

const pendingLocksQuery = `SELECT * FROM lock_requests WHERE status = 'PENDING' ORDER BY created_at ASC`

func photosJSON(photos []string) types.JSONText {
	if photos == nil {
		photos = []string{}
	}
	b, err := json.Marshal(photos)
	if err != nil {
		panic(err)
	}
	return types.JSONText(b)
}
