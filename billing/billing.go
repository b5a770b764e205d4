// Package billing is the transactional boundary tying requests, rides,
// tariffs and the wallet ledger together. Every orchestrated operation is
// one database transaction; rider notification happens after commit and
// never rolls billing back.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.opentelemetry.io/otel"

	"github.com/Xybronix/EcoMobile-backend-sub000/bike"
	"github.com/Xybronix/EcoMobile-backend-sub000/coverage"
	"github.com/Xybronix/EcoMobile-backend-sub000/customer"
	"github.com/Xybronix/EcoMobile-backend-sub000/internal/notify"
	"github.com/Xybronix/EcoMobile-backend-sub000/request"
	"github.com/Xybronix/EcoMobile-backend-sub000/ride"
	"github.com/Xybronix/EcoMobile-backend-sub000/tariff"
	"github.com/Xybronix/EcoMobile-backend-sub000/wallet"
)

var (
	ErrInsufficientDeposit = errors.New("deposit below required minimum")
	ErrRideAlreadyActive   = errors.New("rider already has a ride in progress")
	ErrBikeUnavailable     = errors.New("bike not available")
)

// ImageStore removes stored inspection images when a request is cleaned
// up. Storage itself lives outside this core.
type ImageStore interface {
	Remove(ctx context.Context, keys []string) error
}

type Service struct {
	db        *sqlx.DB
	wallets   *wallet.Repository
	rides     *ride.Repository
	bikes     *bike.Repository
	requests  *request.Repository
	coverage  *coverage.Repository
	customers *customer.Repository
	plans     *tariff.Repository
	engine    *tariff.Engine
	notifier  notify.Notifier
	images    ImageStore
	logger    *slog.Logger

	// minimumDeposit is the deposit a rider must hold before submitting
	// an unlock request, unless a deposit exemption is active.
	minimumDeposit int64
}

type Config struct {
	DB             *sqlx.DB
	Wallets        *wallet.Repository
	Rides          *ride.Repository
	Bikes          *bike.Repository
	Requests       *request.Repository
	Coverage       *coverage.Repository
	Customers      *customer.Repository
	Plans          *tariff.Repository
	Engine         *tariff.Engine
	Notifier       notify.Notifier
	Images         ImageStore
	Logger         *slog.Logger
	MinimumDeposit int64
}

func NewService(cfg Config) *Service {
	return &Service{
		db:             cfg.DB,
		wallets:        cfg.Wallets,
		rides:          cfg.Rides,
		bikes:          cfg.Bikes,
		requests:       cfg.Requests,
		coverage:       cfg.Coverage,
		customers:      cfg.Customers,
		plans:          cfg.Plans,
		engine:         cfg.Engine,
		notifier:       cfg.Notifier,
		images:         cfg.Images,
		logger:         cfg.Logger,
		minimumDeposit: cfg.MinimumDeposit,
	}
}

// SubmitUnlockRequest creates a PENDING unlock request. All three guards
// run inside the creating transaction: the deposit check reads the locked
// wallet row, the duplicate check locks any existing PENDING row, and the
// active-ride check sees the same snapshot.
func (s *Service) SubmitUnlockRequest(ctx context.Context, userID, bikeID uuid.UUID, photos []string) (request.UnlockRequest, error) {
	ctx, span := otel.Tracer("billing").Start(ctx, "SubmitUnlockRequest")
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return request.UnlockRequest{}, err
	}
	defer tx.Rollback()

	cust, err := s.customers.GetByID(ctx, userID)
	if err != nil {
		return request.UnlockRequest{}, err
	}

	if !cust.DepositExempt(time.Now()) {
		w, err := s.wallets.GetOrCreateTx(ctx, tx, userID)
		if err != nil {
			return request.UnlockRequest{}, err
		}
		if w.Deposit < s.minimumDeposit {
			return request.UnlockRequest{}, ErrInsufficientDeposit
		}
	}

	active, err := s.rides.HasInProgressTx(ctx, tx, userID)
	if err != nil {
		return request.UnlockRequest{}, err
	}
	if active {
		return request.UnlockRequest{}, ErrRideAlreadyActive
	}

	req, err := s.requests.CreateUnlockTx(ctx, tx, userID, bikeID, photos)
	if err != nil {
		return request.UnlockRequest{}, err
	}

	return req, tx.Commit()
}

// UnlockResult is what an approved unlock produces: the transitioned
// request and the ride it opened.
type UnlockResult struct {
	Request request.UnlockRequest
	Ride    ride.Ride
}

// ApproveUnlockRequest transitions the request to APPROVED, opens a ride
// capturing the plan in effect now, and flips the bike to IN_USE, all in
// one transaction. Approving a request that already left PENDING fails with
// request.ErrAlreadyProcessed instead of re-executing side effects.
func (s *Service) ApproveUnlockRequest(ctx context.Context, requestID, adminID uuid.UUID) (UnlockResult, error) {
	ctx, span := otel.Tracer("billing").Start(ctx, "ApproveUnlockRequest")
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return UnlockResult{}, err
	}
	defer tx.Rollback()

	req, err := s.requests.GetUnlockForUpdateTx(ctx, tx, requestID)
	if err != nil {
		return UnlockResult{}, err
	}
	if req.Status != request.StatusPending {
		return UnlockResult{}, request.ErrAlreadyProcessed
	}

	b, err := s.bikes.GetForUpdateTx(ctx, tx, req.BikeID)
	if err != nil {
		return UnlockResult{}, err
	}
	if b.Status != bike.StatusAvailable {
		return UnlockResult{}, ErrBikeUnavailable
	}

	plan, err := s.engine.EffectivePlan(ctx, tx, req.UserID)
	if err != nil {
		return UnlockResult{}, err
	}

	rd, err := s.rides.StartTx(ctx, tx, req.BikeID, req.UserID, plan.ID)
	if err != nil {
		return UnlockResult{}, err
	}

	if err := s.bikes.SetStatusTx(ctx, tx, req.BikeID, bike.StatusInUse); err != nil {
		return UnlockResult{}, err
	}

	if err := s.coverage.MarkReservationInUseTx(ctx, tx, req.UserID, req.BikeID, time.Now()); err != nil {
		return UnlockResult{}, err
	}

	if err := s.requests.ApproveTx(ctx, tx, request.KindUnlock, requestID, adminID); err != nil {
		return UnlockResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return UnlockResult{}, err
	}

	req.Status = request.StatusApproved
	unlocksApproved.Inc()

	s.send(ctx, notify.Notification{
		UserID:   req.UserID,
		Title:    "Unlock approved",
		Message:  fmt.Sprintf("Bike %s is unlocked. Enjoy your ride!", b.Label),
		Category: notify.CategoryRequest,
	})

	return UnlockResult{Request: req, Ride: rd}, nil
}

// SubmitLockRequest creates a PENDING lock request carrying the
// GPS-reported return coordinates and, when a ride is open, its id.
func (s *Service) SubmitLockRequest(ctx context.Context, userID, bikeID uuid.UUID, rideID uuid.NullUUID, lat, lng float64, photos []string) (request.LockRequest, error) {
	if !rideID.Valid {
		current, err := s.rides.CurrentForUser(ctx, userID)
		if err != nil {
			return request.LockRequest{}, err
		}
		if current != nil {
			rideID = uuid.NullUUID{UUID: current.ID, Valid: true}
		}
	}

	return s.requests.CreateLock(ctx, userID, bikeID, rideID, lat, lng, photos)
}

// Settlement is the outcome of an approved lock request. Ride and Payment
// are nil when the request referenced no open ride or the final cost was
// zero.
type Settlement struct {
	Request              request.LockRequest
	Ride                 *ride.Ride
	Quote                *tariff.Quote
	Payment              *wallet.Transaction
	Breakdown            *wallet.Breakdown
	ReservationCompleted bool
}

// ApproveLockRequest settles a ride in one transaction: bike back to
// AVAILABLE at the reported coordinates, ride priced and COMPLETED,
// waterfall debit for any cost, matching reservation COMPLETED, request
// APPROVED. Either everything commits or nothing does.
func (s *Service) ApproveLockRequest(ctx context.Context, requestID, adminID uuid.UUID) (Settlement, error) {
	ctx, span := otel.Tracer("billing").Start(ctx, "ApproveLockRequest")
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Settlement{}, err
	}
	defer tx.Rollback()

	req, err := s.requests.GetLockForUpdateTx(ctx, tx, requestID)
	if err != nil {
		return Settlement{}, err
	}
	if req.Status != request.StatusPending {
		return Settlement{}, request.ErrAlreadyProcessed
	}

	if err := s.bikes.SetStatusAndLocationTx(ctx, tx, req.BikeID, bike.StatusAvailable, req.Lat, req.Lng); err != nil {
		return Settlement{}, err
	}

	settlement := Settlement{Request: req}

	if req.RideID.Valid {
		rd, err := s.rides.GetForUpdateTx(ctx, tx, req.RideID.UUID)
		if err != nil {
			return Settlement{}, err
		}

		if rd.Status == ride.StatusInProgress {
			endedAt := time.Now()
			durationMinutes := minutesBetween(rd.StartedAt, endedAt)

			quote, err := s.engine.QuoteRideTx(ctx, tx, rd.UserID, rd.PlanID, durationMinutes, rd.StartedAt)
			if err != nil {
				return Settlement{}, err
			}

			completed, err := s.rides.CompleteTx(ctx, tx, rd.ID, endedAt, durationMinutes, quote.FinalCost)
			if err != nil {
				return Settlement{}, err
			}
			settlement.Ride = &completed
			settlement.Quote = &quote

			if quote.FinalCost > 0 {
				payment, breakdown, err := s.settlePaymentTx(ctx, tx, req, completed, quote)
				if err != nil {
					return Settlement{}, err
				}
				settlement.Payment = &payment
				settlement.Breakdown = &breakdown
			}
		}
	}

	settlement.ReservationCompleted, err = s.coverage.CompleteReservationTx(ctx, tx, req.UserID, req.BikeID, time.Now())
	if err != nil {
		return Settlement{}, err
	}

	if err := s.requests.ApproveTx(ctx, tx, request.KindLock, requestID, adminID); err != nil {
		return Settlement{}, err
	}

	if err := tx.Commit(); err != nil {
		return Settlement{}, err
	}

	settlement.Request.Status = request.StatusApproved
	s.recordSettlement(settlement)
	s.send(ctx, lockApprovedNotification(settlement))

	return settlement, nil
}

// settlePaymentTx debits the ride cost through the waterfall and writes
// the RIDE_PAYMENT ledger entry carrying the audit metadata: the bucket
// breakdown, the applied tariff rule and the related ride/request ids.
func (s *Service) settlePaymentTx(ctx context.Context, tx *sqlx.Tx, req request.LockRequest, rd ride.Ride, quote tariff.Quote) (wallet.Transaction, wallet.Breakdown, error) {
	w, err := s.wallets.GetOrCreateTx(ctx, tx, req.UserID)
	if err != nil {
		return wallet.Transaction{}, wallet.Breakdown{}, err
	}

	breakdown, err := s.wallets.DebitWaterfallTx(ctx, tx, w.ID, quote.FinalCost)
	if err != nil {
		return wallet.Transaction{}, wallet.Breakdown{}, err
	}

	metadata, err := json.Marshal(map[string]any{
		"rideId":      rd.ID,
		"requestId":   req.ID,
		"breakdown":   breakdown,
		"appliedRule": quote.AppliedRule,
		"baseCost":    quote.BaseCost,
		"discount":    quote.DiscountApplied,
		"isOvertime":  quote.IsOvertime,
		"coverage":    quote.Coverage,
	})
	if err != nil {
		return wallet.Transaction{}, wallet.Breakdown{}, err
	}

	payment := wallet.Transaction{
		ID:          uuid.New(),
		WalletID:    w.ID,
		Type:        wallet.TypeRidePayment,
		Amount:      quote.FinalCost,
		TotalAmount: quote.FinalCost,
		Status:      wallet.StatusCompleted,
		Metadata:    types.JSONText(metadata),
	}
	if err := s.wallets.InsertTransactionTx(ctx, tx, &payment); err != nil {
		return wallet.Transaction{}, wallet.Breakdown{}, err
	}

	return payment, breakdown, nil
}

// RejectRequest transitions a PENDING request to REJECTED and notifies
// the rider. No other side effects.
func (s *Service) RejectRequest(ctx context.Context, kind request.Kind, requestID, adminID uuid.UUID, reason string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var userID uuid.UUID
	switch kind {
	case request.KindLock:
		req, err := s.requests.GetLockForUpdateTx(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.Status != request.StatusPending {
			return request.ErrAlreadyProcessed
		}
		userID = req.UserID
	default:
		req, err := s.requests.GetUnlockForUpdateTx(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.Status != request.StatusPending {
			return request.ErrAlreadyProcessed
		}
		userID = req.UserID
	}

	if err := s.requests.RejectTx(ctx, tx, kind, requestID, adminID, reason); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.send(ctx, notify.Notification{
		UserID:   userID,
		Title:    fmt.Sprintf("%s request rejected", kind),
		Message:  reason,
		Category: notify.CategoryRequest,
	})
	return nil
}

// CancelRide abandons an open ride without charging and frees the bike.
func (s *Service) CancelRide(ctx context.Context, rideID, adminID uuid.UUID) (ride.Ride, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return ride.Ride{}, err
	}
	defer tx.Rollback()

	rd, err := s.rides.GetForUpdateTx(ctx, tx, rideID)
	if err != nil {
		return ride.Ride{}, err
	}
	if rd.Status != ride.StatusInProgress {
		return ride.Ride{}, ride.ErrNotInProgress
	}

	cancelled, err := s.rides.CancelTx(ctx, tx, rideID)
	if err != nil {
		return ride.Ride{}, err
	}

	if err := s.bikes.SetStatusTx(ctx, tx, rd.BikeID, bike.StatusAvailable); err != nil {
		return ride.Ride{}, err
	}

	if err := tx.Commit(); err != nil {
		return ride.Ride{}, err
	}

	s.logger.Info("ride cancelled", "ride_id", rideID, "admin_id", adminID)
	s.send(ctx, notify.Notification{
		UserID:   rd.UserID,
		Title:    "Ride cancelled",
		Message:  "Your ride was cancelled by an operator. You have not been charged.",
		Category: notify.CategoryRide,
	})
	return cancelled, nil
}

// PurchaseSubscription sells fee coverage against the wallet: the plan
// rate for the chosen package is debited through the waterfall and a
// SUBSCRIPTION_PAYMENT ledger entry records it, in the same transaction
// that activates the subscription.
func (s *Service) PurchaseSubscription(ctx context.Context, userID, planID uuid.UUID, pkg tariff.PackageType, start, end time.Time) (coverage.Subscription, error) {
	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return coverage.Subscription{}, err
	}
	price := packageRate(plan, pkg)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return coverage.Subscription{}, err
	}
	defer tx.Rollback()

	w, err := s.wallets.GetOrCreateTx(ctx, tx, userID)
	if err != nil {
		return coverage.Subscription{}, err
	}
	if w.Balance < price {
		return coverage.Subscription{}, wallet.ErrInsufficientBalance
	}

	breakdown, err := s.wallets.DebitWaterfallTx(ctx, tx, w.ID, price)
	if err != nil {
		return coverage.Subscription{}, err
	}

	sub := coverage.Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		PlanID:    planID,
		Package:   pkg,
		StartDate: start,
		EndDate:   end,
	}
	if err := s.coverage.CreateSubscriptionTx(ctx, tx, &sub); err != nil {
		return coverage.Subscription{}, err
	}

	metadata, err := json.Marshal(map[string]any{
		"subscriptionId": sub.ID,
		"package":        pkg,
		"breakdown":      breakdown,
	})
	if err != nil {
		return coverage.Subscription{}, err
	}

	payment := wallet.Transaction{
		ID:          uuid.New(),
		WalletID:    w.ID,
		Type:        wallet.TypeSubscriptionPayment,
		Amount:      price,
		TotalAmount: price,
		Status:      wallet.StatusCompleted,
		Metadata:    types.JSONText(metadata),
	}
	if err := s.wallets.InsertTransactionTx(ctx, tx, &payment); err != nil {
		return coverage.Subscription{}, err
	}

	if err := tx.Commit(); err != nil {
		return coverage.Subscription{}, err
	}

	s.send(ctx, notify.Notification{
		UserID:   userID,
		Title:    "Subscription active",
		Message:  fmt.Sprintf("Your %s subscription is active until %s.", pkg, end.Format("2 Jan 2006")),
		Category: notify.CategoryWallet,
	})
	return sub, nil
}

// minutesBetween is the billable duration: partial minutes count as a
// whole minute, so a 60m05s ride bills 61 minutes and crosses into the
// next rounded hour.
func minutesBetween(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}

func packageRate(plan tariff.Plan, pkg tariff.PackageType) int64 {
	switch pkg {
	case tariff.PackageDaily:
		return plan.DailyRate
	case tariff.PackageWeekly:
		return plan.WeeklyRate
	case tariff.PackageMonthly:
		return plan.MonthlyRate
	}
	return plan.HourlyRate
}

// CleanupRequest deletes a processed request and its stored inspection
// images. Image removal failures are logged, not propagated: the rows are
// already gone.
func (s *Service) CleanupRequest(ctx context.Context, kind request.Kind, requestID uuid.UUID) error {
	keys, err := s.requests.Delete(ctx, kind, requestID)
	if err != nil {
		return err
	}

	if len(keys) > 0 && s.images != nil {
		if err := s.images.Remove(ctx, keys); err != nil {
			s.logger.Error("failed to remove request images", "request_id", requestID, "error", err)
		}
	}
	return nil
}

// PendingUnlockRequests lists PENDING unlock requests for the admin
// dashboard.
func (s *Service) PendingUnlockRequests(ctx context.Context) ([]request.UnlockRequest, error) {
	return s.requests.PendingUnlocks(ctx)
}

func (s *Service) PendingLockRequests(ctx context.Context) ([]request.LockRequest, error) {
	return s.requests.PendingLocks(ctx)
}

func (s *Service) GetWalletBalance(ctx context.Context, userID uuid.UUID) (wallet.Wallet, error) {
	return s.wallets.ByUserID(ctx, userID)
}

func (s *Service) RechargeDeposit(ctx context.Context, userID uuid.UUID, amount int64) (wallet.Wallet, error) {
	return s.wallets.RechargeDeposit(ctx, userID, amount)
}

// TopUp credits the wallet balance, settling any negative balance first.
func (s *Service) TopUp(ctx context.Context, userID uuid.UUID, amount int64, reason string) (wallet.Transaction, error) {
	return s.wallets.Credit(ctx, userID, amount, wallet.TypeDeposit, reason)
}

func lockApprovedNotification(st Settlement) notify.Notification {
	n := notify.Notification{
		UserID:   st.Request.UserID,
		Title:    "Lock approved",
		Category: notify.CategoryRide,
	}
	switch {
	case st.Quote == nil:
		n.Message = "Your bike is locked."
	case st.Quote.FinalCost == 0:
		n.Message = "Your ride is covered by your plan. No charge."
	default:
		n.Message = fmt.Sprintf("Your ride cost %d. Applied: %s.", st.Quote.FinalCost, st.Quote.AppliedRule)
	}
	return n
}

// send dispatches a notification best-effort, after the transaction has
// committed. Failures are logged and swallowed.
func (s *Service) send(ctx context.Context, n notify.Notification) {
	if err := s.notifier.Notify(context.WithoutCancel(ctx), n); err != nil {
		s.logger.Error("failed to send notification", "user_id", n.UserID, "error", err)
	}
}
