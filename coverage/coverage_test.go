package coverage

import (
	"testing"
	"time"
)

var (
	rangeStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)
	inside     = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	after      = time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)
)

func TestSubscriptionCovers(t *testing.T) {
	s := Subscription{StartDate: rangeStart, EndDate: rangeEnd, IsActive: true}

	if !s.Covers(inside) {
		t.Error("active subscription inside range should cover")
	}
	if s.Covers(after) {
		t.Error("subscription past end date should not cover")
	}

	s.IsActive = false
	if s.Covers(inside) {
		t.Error("inactive subscription should not cover")
	}
}

func TestReservationCovers(t *testing.T) {
	r := Reservation{StartDate: rangeStart, EndDate: rangeEnd, Status: StatusActive}

	if !r.Covers(inside) {
		t.Error("ACTIVE reservation inside range should cover")
	}

	r.Status = StatusInUse
	if !r.Covers(inside) {
		t.Error("IN_USE reservation inside range should cover")
	}

	for _, st := range []ReservationStatus{StatusCompleted, StatusCancelled, StatusExpired} {
		r.Status = st
		if r.Covers(inside) {
			t.Errorf("%s reservation should not cover", st)
		}
	}
}
