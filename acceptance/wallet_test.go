package acceptance

import (
	"context"
	"errors"
	"testing"

	"github.com/Xybronix/EcoMobile-backend-sub000/wallet"
)

func TestWalletCreatedLazily(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "lazy-wallet")

	w, err := ts.Billing.GetWalletBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("failed to get wallet: %v", err)
	}
	if w.Balance != 0 || w.Deposit != 0 || w.NegativeBalance != 0 {
		t.Errorf("expected empty wallet, got balance=%d deposit=%d negative=%d",
			w.Balance, w.Deposit, w.NegativeBalance)
	}

	// A second read must hit the same row, not create another.
	var count int
	if err := ts.DB.Get(&count, `SELECT count(*) FROM wallets WHERE user_id = $1`, userID); err != nil {
		t.Fatalf("failed to count wallets: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 wallet row, got %d", count)
	}
}

func TestTopUpClearsNegativeBalanceFirst(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "negative-topup")
	ts.SetTestWallet(t, userID, 0, 0, 300)

	txn, err := ts.Billing.TopUp(context.Background(), userID, 500, "card top-up")
	if err != nil {
		t.Fatalf("failed to top up: %v", err)
	}
	if txn.Status != wallet.StatusCompleted {
		t.Errorf("expected COMPLETED transaction, got %s", txn.Status)
	}

	w := ts.GetWallet(t, userID)
	if w.NegativeBalance != 0 {
		t.Errorf("expected negative balance cleared, got %d", w.NegativeBalance)
	}
	if w.Balance != 200 {
		t.Errorf("expected balance 200 after clearing debt, got %d", w.Balance)
	}
}

func TestRechargeDepositMovesFunds(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "recharge")
	ts.SetTestWallet(t, userID, 1000, 100, 0)

	w, err := ts.Billing.RechargeDeposit(context.Background(), userID, 400)
	if err != nil {
		t.Fatalf("failed to recharge deposit: %v", err)
	}
	if w.Balance != 600 || w.Deposit != 500 {
		t.Errorf("expected balance=600 deposit=500, got balance=%d deposit=%d", w.Balance, w.Deposit)
	}
}

func TestRechargeDepositInsufficientBalance(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "recharge-poor")
	ts.SetTestWallet(t, userID, 100, 0, 0)

	_, err := ts.Billing.RechargeDeposit(context.Background(), userID, 400)
	if !errors.Is(err, wallet.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Nothing moved.
	w := ts.GetWallet(t, userID)
	if w.Balance != 100 || w.Deposit != 0 {
		t.Errorf("expected untouched wallet, got balance=%d deposit=%d", w.Balance, w.Deposit)
	}
}

func TestCashDepositValidation(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "cash-deposit")
	adminID := ts.CreateTestCustomer(t, "cash-admin")

	pending, err := ts.Wallets.RequestCashDeposit(context.Background(), userID, 2000)
	if err != nil {
		t.Fatalf("failed to request cash deposit: %v", err)
	}
	if pending.Status != wallet.StatusPending {
		t.Fatalf("expected PENDING transaction, got %s", pending.Status)
	}

	// Pending cash does not move any bucket yet.
	w := ts.GetWallet(t, userID)
	if w.Balance != 0 {
		t.Errorf("expected balance 0 before validation, got %d", w.Balance)
	}

	validated, err := ts.Wallets.ValidateCashDeposit(context.Background(), pending.ID, adminID)
	if err != nil {
		t.Fatalf("failed to validate cash deposit: %v", err)
	}
	if validated.Status != wallet.StatusCompleted {
		t.Errorf("expected COMPLETED transaction, got %s", validated.Status)
	}

	w = ts.GetWallet(t, userID)
	if w.Balance != 2000 {
		t.Errorf("expected balance 2000 after validation, got %d", w.Balance)
	}

	// A second validation must not credit twice.
	_, err = ts.Wallets.ValidateCashDeposit(context.Background(), pending.ID, adminID)
	if !errors.Is(err, wallet.ErrTransactionProcessed) {
		t.Fatalf("expected ErrTransactionProcessed, got %v", err)
	}
	w = ts.GetWallet(t, userID)
	if w.Balance != 2000 {
		t.Errorf("expected balance still 2000, got %d", w.Balance)
	}
}
