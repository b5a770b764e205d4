package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Xybronix/EcoMobile-backend-sub000/bike"
	"github.com/Xybronix/EcoMobile-backend-sub000/billing"
	"github.com/Xybronix/EcoMobile-backend-sub000/coverage"
	"github.com/Xybronix/EcoMobile-backend-sub000/customer"
	"github.com/Xybronix/EcoMobile-backend-sub000/internal/auth0"
	"github.com/Xybronix/EcoMobile-backend-sub000/internal/middleware"
	"github.com/Xybronix/EcoMobile-backend-sub000/internal/o11y"
	"github.com/Xybronix/EcoMobile-backend-sub000/ride"
	"github.com/Xybronix/EcoMobile-backend-sub000/station"
	"github.com/Xybronix/EcoMobile-backend-sub000/tariff"
	"github.com/Xybronix/EcoMobile-backend-sub000/wallet"
)

type API struct {
	r       *gin.Engine
	billing *billing.Service
	br      *bike.Repository
	sr      *station.Repository
	cr      *customer.Repository
	rr      *ride.Repository
	wr      *wallet.Repository
	cov     *coverage.Repository
	pr      *tariff.Repository
	auth0   auth0.Client
}

type Config struct {
	Billing   *billing.Service
	Bikes     *bike.Repository
	Stations  *station.Repository
	Customers *customer.Repository
	Rides     *ride.Repository
	Wallets   *wallet.Repository
	Coverage  *coverage.Repository
	Plans     *tariff.Repository
	Auth0     auth0.Client

	Obs *o11y.Observability

	Auth0Domain string
	Audience    string

	MetricsUsername string
	MetricsPassword string
}

func New(cfg Config) (*API, error) {
	a := &API{
		r:       gin.New(),
		billing: cfg.Billing,
		br:      cfg.Bikes,
		sr:      cfg.Stations,
		cr:      cfg.Customers,
		rr:      cfg.Rides,
		wr:      cfg.Wallets,
		cov:     cfg.Coverage,
		pr:      cfg.Plans,
		auth0:   cfg.Auth0,
	}

	a.r.Use(gin.Recovery())
	a.r.Use(middleware.Tracing())
	a.r.Use(middleware.Logging(cfg.Obs.Logger))
	a.r.Use(middleware.Metrics(cfg.Obs.Registry))

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	metrics := a.r.Group("/metrics")
	if cfg.MetricsUsername != "" {
		metrics.Use(gin.BasicAuth(gin.Accounts{cfg.MetricsUsername: cfg.MetricsPassword}))
	}
	metrics.GET("", gin.WrapH(promhttp.HandlerFor(cfg.Obs.Registry, promhttp.HandlerOpts{})))

	jwt, err := middleware.JWT(cfg.Auth0Domain, cfg.Audience)
	if err != nil {
		return nil, err
	}

	protected := a.r.Group("/")
	protected.Use(jwt)
	{
		protected.GET("/bikes", a.bikesHandler)
		protected.GET("/bikes/:id", a.bikeHandler)
		protected.GET("/stations", a.stationsHandler)
		protected.GET("/plans", a.plansHandler)

		protected.GET("/profile", a.profileHandler)
		protected.POST("/profile/sync", a.syncProfileHandler)

		protected.GET("/wallet", a.getWalletHandler)
		protected.POST("/wallet/topup", a.topUpHandler)
		protected.POST("/wallet/deposit/recharge", a.rechargeDepositHandler)
		protected.POST("/wallet/deposit/cash", a.cashDepositHandler)
		protected.GET("/wallet/transactions", a.transactionsHandler)

		protected.POST("/requests/unlock", a.submitUnlockHandler)
		protected.POST("/requests/lock", a.submitLockHandler)

		protected.GET("/ride/current", a.currentRideHandler)
		protected.GET("/rides", a.rideHistoryHandler)

		protected.GET("/subscriptions", a.subscriptionsHandler)
		protected.POST("/subscriptions", a.purchaseSubscriptionHandler)
		protected.GET("/reservations", a.reservationsHandler)
		protected.POST("/reservations", a.createReservationHandler)
		protected.POST("/reservations/:reservationId/cancel", a.cancelReservationHandler)

		admin := protected.Group("/admin")
		admin.Use(a.requireAdmin)
		{
			admin.GET("/requests/unlock", a.pendingUnlocksHandler)
			admin.GET("/requests/lock", a.pendingLocksHandler)
			admin.POST("/requests/unlock/:requestId/approve", a.approveUnlockHandler)
			admin.POST("/requests/lock/:requestId/approve", a.approveLockHandler)
			admin.POST("/requests/:kind/:requestId/reject", a.rejectRequestHandler)
			admin.DELETE("/requests/:kind/:requestId", a.cleanupRequestHandler)
			admin.POST("/rides/:rideId/cancel", a.cancelRideHandler)
			admin.POST("/transactions/:transactionId/validate", a.validateCashDepositHandler)
			admin.POST("/customers/:customerId/deposit-exemption", a.depositExemptionHandler)
		}
	}

	return a, nil
}

func (a *API) Router() *gin.Engine {
	return a.r
}

// currentCustomer resolves the authenticated customer, creating the row
// lazily on first authenticated call.
func (a *API) currentCustomer(c *gin.Context) (*customer.Customer, bool) {
	auth0ID, ok := middleware.GetAuth0ID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return nil, false
	}

	cust, err := a.cr.GetCustomerByAuth0ID(c, auth0ID)
	if errors.Is(err, customer.ErrNotFound) {
		cust, err = a.cr.CreateCustomer(c, auth0ID)
	}
	if err != nil {
		middleware.GetLogger(c).Error("Failed to get customer", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, false
	}
	return cust, true
}

func (a *API) requireAdmin(c *gin.Context) {
	cust, ok := a.currentCustomer(c)
	if !ok {
		c.Abort()
		return
	}
	if !cust.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "Admin access required"})
		c.Abort()
		return
	}
	c.Set("admin_id", cust.ID)
	c.Next()
}

func adminID(c *gin.Context) uuid.UUID {
	id, _ := c.Get("admin_id")
	return id.(uuid.UUID)
}
