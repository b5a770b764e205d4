// Package wallet owns per-user financial state and the append-only
// transaction ledger backing every debit and credit.
package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

type TransactionType string

const (
	TypeDeposit             TransactionType = "DEPOSIT"
	TypeWithdrawal          TransactionType = "WITHDRAWAL"
	TypeRidePayment         TransactionType = "RIDE_PAYMENT"
	TypeRefund              TransactionType = "REFUND"
	TypeDepositRecharge     TransactionType = "DEPOSIT_RECHARGE"
	TypeDamageCharge        TransactionType = "DAMAGE_CHARGE"
	TypeSubscriptionPayment TransactionType = "SUBSCRIPTION_PAYMENT"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
	StatusCancelled TransactionStatus = "CANCELLED"
)

// Wallet holds the three money buckets for one user. Balance is spendable,
// Deposit is the refundable caution, NegativeBalance is what the user owes
// beyond both. Created lazily on first access.
type Wallet struct {
	ID              uuid.UUID
	UserID          uuid.UUID `db:"user_id"`
	Balance         int64
	Deposit         int64
	NegativeBalance int64     `db:"negative_balance"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Transaction is an immutable ledger entry. Rows are never mutated after
// COMPLETED; the only allowed transition is admin validation of a
// still-PENDING cash deposit.
type Transaction struct {
	ID          uuid.UUID
	WalletID    uuid.UUID `db:"wallet_id"`
	Type        TransactionType
	Amount      int64
	Fees        int64
	TotalAmount int64 `db:"total_amount"`
	Status      TransactionStatus
	Metadata    types.JSONText
	CreatedAt   time.Time `db:"created_at"`
}

// Breakdown records how a waterfall debit was satisfied across the three
// buckets. FromBalance + FromDeposit + ToNegative always equals the
// debited amount.
type Breakdown struct {
	FromBalance int64 `json:"fromBalance"`
	FromDeposit int64 `json:"fromDeposit"`
	ToNegative  int64 `json:"toNegative"`
}

// splitWaterfall computes the bucket split for debiting amount from a
// wallet holding the given balance and deposit. It never fails: whatever
// the two buckets cannot cover becomes negative balance.
func splitWaterfall(balance, deposit, amount int64) Breakdown {
	var b Breakdown
	b.FromBalance = min(amount, balance)
	remaining := amount - b.FromBalance
	b.FromDeposit = min(remaining, deposit)
	b.ToNegative = remaining - b.FromDeposit
	return b
}
