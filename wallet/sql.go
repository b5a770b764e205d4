package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

var (
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrTransactionProcessed = errors.New("transaction already processed")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// GetOrCreateTx locks the user's wallet row for the remainder of tx,
// creating it first if the user has never touched money before.
func (r *Repository) GetOrCreateTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (Wallet, error) {
	var w Wallet
	err := tx.GetContext(ctx, &w, getWalletForUpdateQuery, userID)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.GetContext(ctx, &w, createWalletQuery, uuid.New(), userID)
	}
	return w, err
}

const getWalletForUpdateQuery = `SELECT * FROM wallets WHERE user_id = $1 FOR UPDATE`

const createWalletQuery = `
INSERT INTO wallets (id, user_id, balance, deposit, negative_balance, created_at, updated_at)
VALUES ($1, $2, 0, 0, 0, now(), now())
RETURNING *
`

// ByUserID returns the user's wallet, creating it lazily.
func (r *Repository) ByUserID(ctx context.Context, userID uuid.UUID) (Wallet, error) {
	var w Wallet
	err := r.db.GetContext(ctx, &w, getWalletQuery, userID)
	if !errors.Is(err, sql.ErrNoRows) {
		return w, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Wallet{}, err
	}
	defer tx.Rollback()

	w, err = r.GetOrCreateTx(ctx, tx, userID)
	if err != nil {
		return Wallet{}, err
	}
	return w, tx.Commit()
}

const getWalletQuery = `SELECT * FROM wallets WHERE user_id = $1`

// Credit adds funds to the wallet and writes a COMPLETED ledger entry in
// the same transaction. An outstanding negative balance is settled before
// anything reaches the spendable bucket.
func (r *Repository) Credit(ctx context.Context, userID uuid.UUID, amount int64, txnType TransactionType, reason string) (Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	w, err := r.GetOrCreateTx(ctx, tx, userID)
	if err != nil {
		return Transaction{}, err
	}

	cleared := min(amount, w.NegativeBalance)
	toBalance := amount - cleared

	_, err = tx.ExecContext(ctx, creditWalletQuery, toBalance, cleared, w.ID)
	if err != nil {
		return Transaction{}, err
	}

	txn := Transaction{
		ID:          uuid.New(),
		WalletID:    w.ID,
		Type:        txnType,
		Amount:      amount,
		TotalAmount: amount,
		Status:      StatusCompleted,
		Metadata: mustMetadata(map[string]any{
			"reason":                 reason,
			"negativeBalanceCleared": cleared,
			"creditedToBalance":      toBalance,
		}),
	}
	if err := r.InsertTransactionTx(ctx, tx, &txn); err != nil {
		return Transaction{}, err
	}

	return txn, tx.Commit()
}

const creditWalletQuery = `
UPDATE wallets
SET balance = balance + $1, negative_balance = negative_balance - $2, updated_at = now()
WHERE id = $3
`

// DebitWaterfallTx drains amount from the wallet row already locked in tx:
// balance first, then deposit, the shortfall becoming negative balance.
// It re-reads the authoritative row under the lock and never fails for
// lack of funds. The caller owns writing the ledger entry so that it can
// attach its own metadata.
func (r *Repository) DebitWaterfallTx(ctx context.Context, tx *sqlx.Tx, walletID uuid.UUID, amount int64) (Breakdown, error) {
	var w Wallet
	err := tx.GetContext(ctx, &w, getWalletByIDForUpdateQuery, walletID)
	if err != nil {
		return Breakdown{}, err
	}

	b := splitWaterfall(w.Balance, w.Deposit, amount)
	_, err = tx.ExecContext(ctx, debitWalletQuery, b.FromBalance, b.FromDeposit, b.ToNegative, walletID)
	return b, err
}

const getWalletByIDForUpdateQuery = `SELECT * FROM wallets WHERE id = $1 FOR UPDATE`

const debitWalletQuery = `
UPDATE wallets
SET balance = balance - $1, deposit = deposit - $2, negative_balance = negative_balance + $3, updated_at = now()
WHERE id = $4
`

// InsertTransactionTx appends a ledger entry inside the caller's
// transaction. Wallet update and ledger insert must always commit
// together.
func (r *Repository) InsertTransactionTx(ctx context.Context, tx *sqlx.Tx, txn *Transaction) error {
	return tx.GetContext(ctx, txn, insertTransactionQuery,
		txn.ID, txn.WalletID, txn.Type, txn.Amount, txn.Fees, txn.TotalAmount, txn.Status, txn.Metadata)
}

const insertTransactionQuery = `
INSERT INTO transactions (id, wallet_id, type, amount, fees, total_amount, status, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
RETURNING *
`

// RechargeDeposit moves funds from the spendable balance into the deposit
// bucket. Fails with ErrInsufficientBalance rather than going negative.
func (r *Repository) RechargeDeposit(ctx context.Context, userID uuid.UUID, amount int64) (Wallet, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Wallet{}, err
	}
	defer tx.Rollback()

	w, err := r.GetOrCreateTx(ctx, tx, userID)
	if err != nil {
		return Wallet{}, err
	}
	if w.Balance < amount {
		return Wallet{}, ErrInsufficientBalance
	}

	err = tx.GetContext(ctx, &w, rechargeDepositQuery, amount, w.ID)
	if err != nil {
		return Wallet{}, err
	}

	txn := Transaction{
		ID:          uuid.New(),
		WalletID:    w.ID,
		Type:        TypeDepositRecharge,
		Amount:      amount,
		TotalAmount: amount,
		Status:      StatusCompleted,
		Metadata:    mustMetadata(map[string]any{"movedFromBalance": amount}),
	}
	if err := r.InsertTransactionTx(ctx, tx, &txn); err != nil {
		return Wallet{}, err
	}

	return w, tx.Commit()
}

const rechargeDepositQuery = `
UPDATE wallets
SET balance = balance - $1, deposit = deposit + $1, updated_at = now()
WHERE id = $2
RETURNING *
`

// RequestCashDeposit records a PENDING deposit that an admin later
// validates once the cash has been handed over. No wallet bucket moves
// until validation.
func (r *Repository) RequestCashDeposit(ctx context.Context, userID uuid.UUID, amount int64) (Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	w, err := r.GetOrCreateTx(ctx, tx, userID)
	if err != nil {
		return Transaction{}, err
	}

	txn := Transaction{
		ID:          uuid.New(),
		WalletID:    w.ID,
		Type:        TypeDeposit,
		Amount:      amount,
		TotalAmount: amount,
		Status:      StatusPending,
		Metadata:    mustMetadata(map[string]any{"method": "cash"}),
	}
	if err := r.InsertTransactionTx(ctx, tx, &txn); err != nil {
		return Transaction{}, err
	}

	return txn, tx.Commit()
}

// ValidateCashDeposit flips a PENDING cash deposit to COMPLETED and
// credits the wallet. Any other starting status is a conflict: COMPLETED
// rows are immutable.
func (r *Repository) ValidateCashDeposit(ctx context.Context, transactionID, adminID uuid.UUID) (Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	var txn Transaction
	err = tx.GetContext(ctx, &txn, getTransactionForUpdateQuery, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	if err != nil {
		return Transaction{}, err
	}
	if txn.Status != StatusPending {
		return Transaction{}, ErrTransactionProcessed
	}

	var w Wallet
	err = tx.GetContext(ctx, &w, getWalletByIDForUpdateQuery, txn.WalletID)
	if err != nil {
		return Transaction{}, err
	}

	cleared := min(txn.TotalAmount, w.NegativeBalance)
	_, err = tx.ExecContext(ctx, creditWalletQuery, txn.TotalAmount-cleared, cleared, w.ID)
	if err != nil {
		return Transaction{}, err
	}

	err = tx.GetContext(ctx, &txn, completeTransactionQuery, mustMetadata(map[string]any{
		"method":                 "cash",
		"validatedBy":            adminID,
		"negativeBalanceCleared": cleared,
	}), transactionID)
	if err != nil {
		return Transaction{}, err
	}

	return txn, tx.Commit()
}

const getTransactionForUpdateQuery = `SELECT * FROM transactions WHERE id = $1 FOR UPDATE`

const completeTransactionQuery = `
UPDATE transactions SET status = 'COMPLETED', metadata = $1 WHERE id = $2
RETURNING *
`

// TransactionsForUser lists the user's ledger, newest first.
func (r *Repository) TransactionsForUser(ctx context.Context, userID uuid.UUID) ([]Transaction, error) {
	var txns []Transaction
	err := r.db.SelectContext(ctx, &txns, transactionsForUserQuery, userID)
	return txns, err
}

const transactionsForUserQuery = `
SELECT t.* FROM transactions t
JOIN wallets w ON t.wallet_id = w.id
WHERE w.user_id = $1
ORDER BY t.created_at DESC
`

func mustMetadata(m map[string]any) types.JSONText {
	b, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return types.JSONText(b)
}
