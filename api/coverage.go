package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Xybronix/EcoMobile-backend-sub000/bike"
	"github.com/Xybronix/EcoMobile-backend-sub000/coverage"
	"github.com/Xybronix/EcoMobile-backend-sub000/internal/middleware"
	"github.com/Xybronix/EcoMobile-backend-sub000/tariff"
	"github.com/Xybronix/EcoMobile-backend-sub000/wallet"
)

func (a *API) subscriptionsHandler(c *gin.Context) {
	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	subs, err := a.cov.SubscriptionsForUser(c, cust.ID)
	if err != nil {
		middleware.GetLogger(c).Error("Failed to list subscriptions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, subs)
}

type purchaseSubscriptionBody struct {
	PlanID    string `json:"planId" binding:"required"`
	Package   string `json:"package" binding:"required"`
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate" binding:"required"`
}

func (a *API) purchaseSubscriptionHandler(c *gin.Context) {
	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	var body purchaseSubscriptionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	planID, err := uuid.Parse(body.PlanID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid planId"})
		return
	}

	pkg, ok := parsePackage(c, body.Package)
	if !ok {
		return
	}

	start, end, ok := parseDateRange(c, body.StartDate, body.EndDate)
	if !ok {
		return
	}

	sub, err := a.billing.PurchaseSubscription(c, cust.ID, planID, pkg, start, end)
	if err != nil {
		switch {
		case errors.Is(err, tariff.ErrPlanNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "PLAN_NOT_FOUND", "message": "Pricing plan not found"})
		case errors.Is(err, wallet.ErrInsufficientBalance):
			c.JSON(http.StatusBadRequest, gin.H{"code": "INSUFFICIENT_BALANCE", "message": "Balance too low for this subscription"})
		default:
			middleware.GetLogger(c).Error("Failed to purchase subscription", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusCreated, sub)
}

func (a *API) reservationsHandler(c *gin.Context) {
	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	res, err := a.cov.ReservationsForUser(c, cust.ID)
	if err != nil {
		middleware.GetLogger(c).Error("Failed to list reservations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, res)
}

type createReservationBody struct {
	BikeID    string `json:"bikeId" binding:"required"`
	PlanID    string `json:"planId" binding:"required"`
	Package   string `json:"package" binding:"required"`
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate" binding:"required"`
}

func (a *API) createReservationHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	var body createReservationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	bk, err := a.br.GetBike(c, body.BikeID)
	if err != nil {
		if errors.Is(err, bike.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "BIKE_NOT_FOUND", "message": "Bike not found"})
			return
		}
		logger.Error("Failed to get bike", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	planID, err := uuid.Parse(body.PlanID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid planId"})
		return
	}

	pkg, ok := parsePackage(c, body.Package)
	if !ok {
		return
	}

	start, end, ok := parseDateRange(c, body.StartDate, body.EndDate)
	if !ok {
		return
	}

	res := &coverage.Reservation{
		ID:        uuid.New(),
		UserID:    cust.ID,
		BikeID:    bk.ID,
		PlanID:    planID,
		Package:   pkg,
		StartDate: start,
		EndDate:   end,
	}
	if err := a.cov.CreateReservation(c, res); err != nil {
		logger.Error("Failed to create reservation", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (a *API) cancelReservationHandler(c *gin.Context) {
	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	resID, err := uuid.Parse(c.Param("reservationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid reservationId"})
		return
	}

	res, err := a.cov.CancelReservation(c, resID, cust.ID)
	if err != nil {
		switch {
		case errors.Is(err, coverage.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "RESERVATION_NOT_FOUND", "message": "Reservation not found"})
		case errors.Is(err, coverage.ErrCannotCancel):
			c.JSON(http.StatusConflict, gin.H{"code": "CANNOT_CANCEL", "message": "Reservation can no longer be cancelled"})
		default:
			middleware.GetLogger(c).Error("Failed to cancel reservation", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, res)
}

func parsePackage(c *gin.Context, s string) (tariff.PackageType, bool) {
	switch tariff.PackageType(s) {
	case tariff.PackageHourly, tariff.PackageDaily, tariff.PackageWeekly, tariff.PackageMonthly:
		return tariff.PackageType(s), true
	}
	c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "package must be hourly, daily, weekly or monthly"})
	return "", false
}

func parseDateRange(c *gin.Context, startStr, endStr string) (time.Time, time.Time, bool) {
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid startDate format"})
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid endDate format"})
		return time.Time{}, time.Time{}, false
	}
	if !end.After(start) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "endDate must be after startDate"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
