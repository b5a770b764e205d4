package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Xybronix/EcoMobile-backend-sub000/bike"
	"github.com/Xybronix/EcoMobile-backend-sub000/billing"
	"github.com/Xybronix/EcoMobile-backend-sub000/internal/middleware"
	"github.com/Xybronix/EcoMobile-backend-sub000/request"
)

type unlockRequestBody struct {
	BikeID string   `json:"bikeId" binding:"required"`
	Photos []string `json:"photos"`
}

func (a *API) submitUnlockHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	var body unlockRequestBody
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

	req, err := a.billing.SubmitUnlockRequest(c, cust.ID, bk.ID, body.Photos)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInsufficientDeposit):
			c.JSON(http.StatusBadRequest, gin.H{"code": "INSUFFICIENT_DEPOSIT", "message": "Deposit below required minimum"})
		case errors.Is(err, request.ErrDuplicatePending):
			c.JSON(http.StatusConflict, gin.H{"code": "DUPLICATE_PENDING_REQUEST", "message": "You already have a pending unlock request"})
		case errors.Is(err, billing.ErrRideAlreadyActive):
			c.JSON(http.StatusConflict, gin.H{"code": "RIDE_ALREADY_ACTIVE", "message": "You already have a ride in progress"})
		default:
			logger.Error("Failed to submit unlock request", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusCreated, req)
}

type lockRequestBody struct {
	BikeID string   `json:"bikeId" binding:"required"`
	RideID string   `json:"rideId"`
	Lat    float64  `json:"lat"`
	Lng    float64  `json:"lng"`
	Photos []string `json:"photos"`
}

func (a *API) submitLockHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	var body lockRequestBody
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

	var rideID uuid.NullUUID
	if body.RideID != "" {
		id, err := uuid.Parse(body.RideID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid rideId"})
			return
		}
		rideID = uuid.NullUUID{UUID: id, Valid: true}
	}

	req, err := a.billing.SubmitLockRequest(c, cust.ID, bk.ID, rideID, body.Lat, body.Lng, body.Photos)
	if err != nil {
		logger.Error("Failed to submit lock request", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, req)
}

func (a *API) pendingUnlocksHandler(c *gin.Context) {
	reqs, err := a.billing.PendingUnlockRequests(c)
	if err != nil {
		middleware.GetLogger(c).Error("Failed to list pending unlock requests", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, reqs)
}

func (a *API) pendingLocksHandler(c *gin.Context) {
	reqs, err := a.billing.PendingLockRequests(c)
	if err != nil {
		middleware.GetLogger(c).Error("Failed to list pending lock requests", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, reqs)
}

func (a *API) approveUnlockHandler(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid requestId"})
		return
	}

	result, err := a.billing.ApproveUnlockRequest(c, requestID, adminID(c))
	if err != nil {
		switch {
		case errors.Is(err, request.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "REQUEST_NOT_FOUND", "message": "Request not found"})
		case errors.Is(err, request.ErrAlreadyProcessed):
			c.JSON(http.StatusConflict, gin.H{"code": "ALREADY_PROCESSED", "message": "Request already processed"})
		case errors.Is(err, billing.ErrBikeUnavailable):
			c.JSON(http.StatusConflict, gin.H{"code": "BIKE_UNAVAILABLE", "message": "Bike not available"})
		default:
			middleware.GetLogger(c).Error("Failed to approve unlock request", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

func (a *API) approveLockHandler(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid requestId"})
		return
	}

	settlement, err := a.billing.ApproveLockRequest(c, requestID, adminID(c))
	if err != nil {
		switch {
		case errors.Is(err, request.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "REQUEST_NOT_FOUND", "message": "Request not found"})
		case errors.Is(err, request.ErrAlreadyProcessed):
			c.JSON(http.StatusConflict, gin.H{"code": "ALREADY_PROCESSED", "message": "Request already processed"})
		default:
			middleware.GetLogger(c).Error("Failed to approve lock request", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, settlement)
}

type rejectBody struct {
	Reason string `json:"reason" binding:"required"`
}

func (a *API) rejectRequestHandler(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}

	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid requestId"})
		return
	}

	var body rejectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	err = a.billing.RejectRequest(c, kind, requestID, adminID(c), body.Reason)
	if err != nil {
		switch {
		case errors.Is(err, request.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "REQUEST_NOT_FOUND", "message": "Request not found"})
		case errors.Is(err, request.ErrAlreadyProcessed):
			c.JSON(http.StatusConflict, gin.H{"code": "ALREADY_PROCESSED", "message": "Request already processed"})
		default:
			middleware.GetLogger(c).Error("Failed to reject request", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) cleanupRequestHandler(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}

	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid requestId"})
		return
	}

	if err := a.billing.CleanupRequest(c, kind, requestID); err != nil {
		if errors.Is(err, request.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "REQUEST_NOT_FOUND", "message": "Request not found"})
			return
		}
		middleware.GetLogger(c).Error("Failed to clean up request", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusNoContent)
}

func parseKind(c *gin.Context) (request.Kind, bool) {
	switch request.Kind(c.Param("kind")) {
	case request.KindUnlock:
		return request.KindUnlock, true
	case request.KindLock:
		return request.KindLock, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "kind must be unlock or lock"})
	return "", false
}
