package acceptance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"

	"github.com/Xybronix/EcoMobile-backend-sub000/bike"
	"github.com/Xybronix/EcoMobile-backend-sub000/coverage"
	"github.com/Xybronix/EcoMobile-backend-sub000/request"
	"github.com/Xybronix/EcoMobile-backend-sub000/ride"
	"github.com/Xybronix/EcoMobile-backend-sub000/tariff"
	"github.com/Xybronix/EcoMobile-backend-sub000/wallet"
)

// A 90 minute ride on a 200/hour plan bills 2 rounded hours: 400. With
// 100 spendable and 500 deposit the waterfall takes 100 then 300.
func TestLockApprovalSettlesThroughWaterfall(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "settle")
	adminID := ts.CreateTestCustomer(t, "settle-admin")
	bikeID := ts.CreateTestBike(t, "EM-101", bike.StatusInUse)
	planID := ts.CreateTestPlan(t, 200)
	ts.CreateTestRide(t, userID, bikeID, planID, 90*time.Minute)
	ts.SetTestWallet(t, userID, 100, 500, 0)

	req, err := ts.Billing.SubmitLockRequest(context.Background(), userID, bikeID, uuid.NullUUID{}, 48.8566, 2.3522, nil)
	if err != nil {
		t.Fatalf("failed to submit lock request: %v", err)
	}
	if !req.RideID.Valid {
		t.Fatal("expected lock request to resolve the open ride")
	}

	st, err := ts.Billing.ApproveLockRequest(context.Background(), req.ID, adminID)
	if err != nil {
		t.Fatalf("failed to approve lock request: %v", err)
	}

	if st.Ride == nil || st.Quote == nil || st.Payment == nil || st.Breakdown == nil {
		t.Fatalf("incomplete settlement:\n%s", spew.Sdump(st))
	}
	if st.Ride.Status != ride.StatusCompleted {
		t.Errorf("expected COMPLETED ride, got %s", st.Ride.Status)
	}
	if !st.Ride.Cost.Valid || st.Ride.Cost.Int64 != 400 {
		t.Errorf("expected ride cost 400, got %v", st.Ride.Cost)
	}
	if st.Quote.AppliedRule != "normal tariff" {
		t.Errorf("expected normal tariff rule, got %q", st.Quote.AppliedRule)
	}
	if st.Breakdown.FromBalance != 100 || st.Breakdown.FromDeposit != 300 || st.Breakdown.ToNegative != 0 {
		t.Errorf("unexpected breakdown:\n%s", spew.Sdump(st.Breakdown))
	}
	if st.Payment.Type != wallet.TypeRidePayment || st.Payment.Amount != 400 {
		t.Errorf("unexpected payment: type=%s amount=%d", st.Payment.Type, st.Payment.Amount)
	}

	w := ts.GetWallet(t, userID)
	if w.Balance != 0 || w.Deposit != 200 || w.NegativeBalance != 0 {
		t.Errorf("expected wallet 0/200/0, got %d/%d/%d", w.Balance, w.Deposit, w.NegativeBalance)
	}

	b, err := ts.Bikes.GetBikeByID(context.Background(), bikeID)
	if err != nil {
		t.Fatalf("failed to get bike: %v", err)
	}
	if b.Status != bike.StatusAvailable {
		t.Errorf("expected bike AVAILABLE, got %s", b.Status)
	}
	if b.Location.P.X != 48.8566 || b.Location.P.Y != 2.3522 {
		t.Errorf("expected bike at reported coordinates, got %v", b.Location.P)
	}
}

func TestLockApprovalShortfallGoesNegative(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "shortfall")
	adminID := ts.CreateTestCustomer(t, "shortfall-admin")
	bikeID := ts.CreateTestBike(t, "EM-102", bike.StatusInUse)
	planID := ts.CreateTestPlan(t, 200)
	ts.CreateTestRide(t, userID, bikeID, planID, 90*time.Minute)
	ts.SetTestWallet(t, userID, 50, 100, 0)

	req, err := ts.Billing.SubmitLockRequest(context.Background(), userID, bikeID, uuid.NullUUID{}, 0, 0, nil)
	if err != nil {
		t.Fatalf("failed to submit lock request: %v", err)
	}

	st, err := ts.Billing.ApproveLockRequest(context.Background(), req.ID, adminID)
	if err != nil {
		t.Fatalf("failed to approve lock request: %v", err)
	}
	if st.Breakdown == nil {
		t.Fatalf("expected a debit breakdown:\n%s", spew.Sdump(st))
	}
	if st.Breakdown.FromBalance != 50 || st.Breakdown.FromDeposit != 100 || st.Breakdown.ToNegative != 250 {
		t.Errorf("unexpected breakdown:\n%s", spew.Sdump(st.Breakdown))
	}

	w := ts.GetWallet(t, userID)
	if w.Balance != 0 || w.Deposit != 0 || w.NegativeBalance != 250 {
		t.Errorf("expected wallet 0/0/250, got %d/%d/%d", w.Balance, w.Deposit, w.NegativeBalance)
	}
}

func TestLockApprovalCoveredByReservation(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "covered")
	adminID := ts.CreateTestCustomer(t, "covered-admin")
	bikeID := ts.CreateTestBike(t, "EM-103", bike.StatusInUse)
	planID := ts.CreateTestPlan(t, 200)
	// Whole-day window so the result does not depend on the wall clock.
	ts.CreateTestOverride(t, planID, 0, 24, tariff.PercentageReduction, 50)
	ts.CreateTestRide(t, userID, bikeID, planID, 90*time.Minute)
	resID := ts.CreateTestReservation(t, userID, bikeID, planID, tariff.PackageDaily, coverage.StatusInUse)
	ts.SetTestWallet(t, userID, 100, 500, 0)

	req, err := ts.Billing.SubmitLockRequest(context.Background(), userID, bikeID, uuid.NullUUID{}, 0, 0, nil)
	if err != nil {
		t.Fatalf("failed to submit lock request: %v", err)
	}

	st, err := ts.Billing.ApproveLockRequest(context.Background(), req.ID, adminID)
	if err != nil {
		t.Fatalf("failed to approve lock request: %v", err)
	}
	if st.Quote == nil {
		t.Fatalf("expected a quote:\n%s", spew.Sdump(st))
	}
	if st.Quote.FinalCost != 0 {
		t.Errorf("expected covered ride to cost 0, got %d (%s)", st.Quote.FinalCost, st.Quote.AppliedRule)
	}
	if st.Payment != nil {
		t.Errorf("expected no payment for a covered ride, got %v", st.Payment)
	}
	if !st.ReservationCompleted {
		t.Error("expected the reservation to be completed")
	}

	var status coverage.ReservationStatus
	if err := ts.DB.Get(&status, `SELECT status FROM reservations WHERE id = $1`, resID); err != nil {
		t.Fatalf("failed to read reservation: %v", err)
	}
	if status != coverage.StatusCompleted {
		t.Errorf("expected reservation COMPLETED, got %s", status)
	}

	// No funds moved.
	w := ts.GetWallet(t, userID)
	if w.Balance != 100 || w.Deposit != 500 {
		t.Errorf("expected untouched wallet, got %d/%d", w.Balance, w.Deposit)
	}
}

// When a reservation and a subscription are both active, the reservation
// drives the quote. The override gives the reservation's daily package a
// whole-day window and the subscription's hourly package an empty one, so
// the two coverages price differently.
func TestReservationWinsOverSubscription(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "precedence")
	adminID := ts.CreateTestCustomer(t, "precedence-admin")
	bikeID := ts.CreateTestBike(t, "EM-107", bike.StatusInUse)
	planID := ts.CreateTestPlan(t, 200)
	if _, err := ts.DB.Exec(`
		INSERT INTO plan_overrides (id, plan_id,
			hourly_start_hour, hourly_end_hour, daily_start_hour, daily_end_hour,
			weekly_start_hour, weekly_end_hour, monthly_start_hour, monthly_end_hour,
			overtime_kind, overtime_value)
		VALUES (gen_random_uuid(), $1, 0, 0, 0, 24, 8, 22, 6, 23, 'PERCENTAGE_REDUCTION', 50)
	`, planID); err != nil {
		t.Fatalf("failed to create override: %v", err)
	}
	ts.CreateTestRide(t, userID, bikeID, planID, 90*time.Minute)
	resID := ts.CreateTestReservation(t, userID, bikeID, planID, tariff.PackageDaily, coverage.StatusInUse)
	ts.CreateTestSubscription(t, userID, planID, tariff.PackageHourly)
	ts.SetTestWallet(t, userID, 1000, 0, 0)

	req, err := ts.Billing.SubmitLockRequest(context.Background(), userID, bikeID, uuid.NullUUID{}, 0, 0, nil)
	if err != nil {
		t.Fatalf("failed to submit lock request: %v", err)
	}

	st, err := ts.Billing.ApproveLockRequest(context.Background(), req.ID, adminID)
	if err != nil {
		t.Fatalf("failed to approve lock request: %v", err)
	}
	if st.Quote == nil {
		t.Fatalf("expected a quote:\n%s", spew.Sdump(st))
	}
	if st.Quote.Coverage != tariff.CoverageReservation {
		t.Errorf("expected reservation coverage, got %s", st.Quote.Coverage)
	}
	if st.Quote.FinalCost != 0 {
		t.Errorf("expected the reservation's daily window to cover the ride, got %d (%s)",
			st.Quote.FinalCost, st.Quote.AppliedRule)
	}

	// The subscription survives settlement; only the reservation completes.
	var status coverage.ReservationStatus
	if err := ts.DB.Get(&status, `SELECT status FROM reservations WHERE id = $1`, resID); err != nil {
		t.Fatalf("failed to read reservation: %v", err)
	}
	if status != coverage.StatusCompleted {
		t.Errorf("expected reservation COMPLETED, got %s", status)
	}
	var active bool
	if err := ts.DB.Get(&active, `SELECT is_active FROM subscriptions WHERE user_id = $1`, userID); err != nil {
		t.Fatalf("failed to read subscription: %v", err)
	}
	if !active {
		t.Error("expected subscription still active")
	}
}

func TestLockApprovalOvertimeReduction(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "overtime")
	adminID := ts.CreateTestCustomer(t, "overtime-admin")
	bikeID := ts.CreateTestBike(t, "EM-104", bike.StatusInUse)
	planID := ts.CreateTestPlan(t, 200)
	// Empty window: every start hour is overtime.
	ts.CreateTestOverride(t, planID, 0, 0, tariff.PercentageReduction, 50)
	ts.CreateTestRide(t, userID, bikeID, planID, 90*time.Minute)
	ts.CreateTestSubscription(t, userID, planID, tariff.PackageDaily)
	ts.SetTestWallet(t, userID, 1000, 0, 0)

	req, err := ts.Billing.SubmitLockRequest(context.Background(), userID, bikeID, uuid.NullUUID{}, 0, 0, nil)
	if err != nil {
		t.Fatalf("failed to submit lock request: %v", err)
	}

	st, err := ts.Billing.ApproveLockRequest(context.Background(), req.ID, adminID)
	if err != nil {
		t.Fatalf("failed to approve lock request: %v", err)
	}
	if st.Quote == nil {
		t.Fatalf("expected a quote:\n%s", spew.Sdump(st))
	}
	if !st.Quote.IsOvertime {
		t.Errorf("expected an overtime quote, got %q", st.Quote.AppliedRule)
	}
	if st.Quote.FinalCost != 200 {
		t.Errorf("expected 50%% reduction of 400, got %d", st.Quote.FinalCost)
	}

	w := ts.GetWallet(t, userID)
	if w.Balance != 800 {
		t.Errorf("expected balance 800, got %d", w.Balance)
	}
}

func TestLockApprovalIdempotent(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "settle-twice")
	adminID := ts.CreateTestCustomer(t, "settle-twice-admin")
	bikeID := ts.CreateTestBike(t, "EM-105", bike.StatusInUse)
	planID := ts.CreateTestPlan(t, 200)
	ts.CreateTestRide(t, userID, bikeID, planID, 90*time.Minute)
	ts.SetTestWallet(t, userID, 1000, 0, 0)

	req, err := ts.Billing.SubmitLockRequest(context.Background(), userID, bikeID, uuid.NullUUID{}, 0, 0, nil)
	if err != nil {
		t.Fatalf("failed to submit lock request: %v", err)
	}

	if _, err := ts.Billing.ApproveLockRequest(context.Background(), req.ID, adminID); err != nil {
		t.Fatalf("first approval failed: %v", err)
	}

	_, err = ts.Billing.ApproveLockRequest(context.Background(), req.ID, adminID)
	if !errors.Is(err, request.ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}

	// Charged exactly once.
	w := ts.GetWallet(t, userID)
	if w.Balance != 600 {
		t.Errorf("expected balance 600 after a single 400 charge, got %d", w.Balance)
	}
	var payments int
	if err := ts.DB.Get(&payments, `
		SELECT count(*) FROM transactions t
		JOIN wallets w ON t.wallet_id = w.id
		WHERE w.user_id = $1 AND t.type = 'RIDE_PAYMENT'
	`, userID); err != nil {
		t.Fatalf("failed to count payments: %v", err)
	}
	if payments != 1 {
		t.Errorf("expected 1 ride payment, got %d", payments)
	}
}

func TestPurchaseSubscription(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "subscribe")
	planID := ts.CreateTestPlan(t, 200)
	ts.SetTestWallet(t, userID, 5000, 0, 0)

	start := time.Now()
	sub, err := ts.Billing.PurchaseSubscription(context.Background(), userID, planID,
		tariff.PackageDaily, start, start.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("failed to purchase subscription: %v", err)
	}
	if sub.Package != tariff.PackageDaily {
		t.Errorf("expected daily package, got %s", sub.Package)
	}

	// Daily rate is hourly*8 in the test plan.
	w := ts.GetWallet(t, userID)
	if w.Balance != 5000-1600 {
		t.Errorf("expected balance 3400, got %d", w.Balance)
	}
}

func TestPurchaseSubscriptionInsufficientBalance(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "subscribe-poor")
	planID := ts.CreateTestPlan(t, 200)
	ts.SetTestWallet(t, userID, 100, 0, 0)

	start := time.Now()
	_, err := ts.Billing.PurchaseSubscription(context.Background(), userID, planID,
		tariff.PackageDaily, start, start.AddDate(0, 0, 1))
	if !errors.Is(err, wallet.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestCancelRideFreesBikeWithoutCharge(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "cancel-ride")
	adminID := ts.CreateTestCustomer(t, "cancel-ride-admin")
	bikeID := ts.CreateTestBike(t, "EM-106", bike.StatusInUse)
	planID := ts.CreateTestPlan(t, 200)
	rideID := ts.CreateTestRide(t, userID, bikeID, planID, 30*time.Minute)
	ts.SetTestWallet(t, userID, 1000, 0, 0)

	cancelled, err := ts.Billing.CancelRide(context.Background(), rideID, adminID)
	if err != nil {
		t.Fatalf("failed to cancel ride: %v", err)
	}
	if cancelled.Status != ride.StatusCancelled {
		t.Errorf("expected CANCELLED ride, got %s", cancelled.Status)
	}

	b, err := ts.Bikes.GetBikeByID(context.Background(), bikeID)
	if err != nil {
		t.Fatalf("failed to get bike: %v", err)
	}
	if b.Status != bike.StatusAvailable {
		t.Errorf("expected bike AVAILABLE, got %s", b.Status)
	}

	w := ts.GetWallet(t, userID)
	if w.Balance != 1000 {
		t.Errorf("expected untouched balance, got %d", w.Balance)
	}
}
