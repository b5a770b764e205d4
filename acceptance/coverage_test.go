package acceptance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Xybronix/EcoMobile-backend-sub000/bike"
	"github.com/Xybronix/EcoMobile-backend-sub000/coverage"
	"github.com/Xybronix/EcoMobile-backend-sub000/tariff"
)

func TestReservationLifecycle(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "reservation-lifecycle")
	bikeID := ts.CreateTestBike(t, "EM-201", bike.StatusAvailable)
	planID := ts.CreateTestPlan(t, 200)

	res := coverage.Reservation{
		ID:        uuid.New(),
		UserID:    userID,
		BikeID:    bikeID,
		PlanID:    planID,
		Package:   tariff.PackageDaily,
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(24 * time.Hour),
	}
	if err := ts.Coverage.CreateReservation(context.Background(), &res); err != nil {
		t.Fatalf("failed to create reservation: %v", err)
	}
	if res.Status != coverage.StatusActive {
		t.Errorf("expected ACTIVE reservation, got %s", res.Status)
	}

	cancelled, err := ts.Coverage.CancelReservation(context.Background(), res.ID, userID)
	if err != nil {
		t.Fatalf("failed to cancel reservation: %v", err)
	}
	if cancelled.Status != coverage.StatusCancelled {
		t.Errorf("expected CANCELLED reservation, got %s", cancelled.Status)
	}

	// Cancelling again is a conflict.
	_, err = ts.Coverage.CancelReservation(context.Background(), res.ID, userID)
	if !errors.Is(err, coverage.ErrCannotCancel) {
		t.Fatalf("expected ErrCannotCancel, got %v", err)
	}
}

func TestCancelReservationWrongUser(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "reservation-owner")
	otherID := ts.CreateTestCustomer(t, "reservation-other")
	bikeID := ts.CreateTestBike(t, "EM-202", bike.StatusAvailable)
	planID := ts.CreateTestPlan(t, 200)
	resID := ts.CreateTestReservation(t, userID, bikeID, planID, tariff.PackageDaily, coverage.StatusActive)

	_, err := ts.Coverage.CancelReservation(context.Background(), resID, otherID)
	if !errors.Is(err, coverage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another rider's reservation, got %v", err)
	}
}

func TestExpireReservationsSweep(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	userID := ts.CreateTestCustomer(t, "reservation-expiry")
	bikeID := ts.CreateTestBike(t, "EM-203", bike.StatusAvailable)
	planID := ts.CreateTestPlan(t, 200)

	// One reservation already past its end date, one still running.
	expiredID := ts.CreateTestReservation(t, userID, bikeID, planID, tariff.PackageDaily, coverage.StatusActive)
	if _, err := ts.DB.Exec(`
		UPDATE reservations SET end_date = now() - interval '1 hour' WHERE id = $1
	`, expiredID); err != nil {
		t.Fatalf("failed to backdate reservation: %v", err)
	}
	liveID := ts.CreateTestReservation(t, userID, bikeID, planID, tariff.PackageDaily, coverage.StatusActive)

	n, err := ts.Coverage.ExpireReservations(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("failed to expire reservations: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired reservation, got %d", n)
	}

	var status coverage.ReservationStatus
	if err := ts.DB.Get(&status, `SELECT status FROM reservations WHERE id = $1`, expiredID); err != nil {
		t.Fatalf("failed to read reservation: %v", err)
	}
	if status != coverage.StatusExpired {
		t.Errorf("expected EXPIRED, got %s", status)
	}
	if err := ts.DB.Get(&status, `SELECT status FROM reservations WHERE id = $1`, liveID); err != nil {
		t.Fatalf("failed to read reservation: %v", err)
	}
	if status != coverage.StatusActive {
		t.Errorf("expected live reservation untouched, got %s", status)
	}
}
