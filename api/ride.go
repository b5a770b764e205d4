package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Xybronix/EcoMobile-backend-sub000/internal/middleware"
	"github.com/Xybronix/EcoMobile-backend-sub000/ride"
)

type RideState struct {
	InProgress bool      `json:"inProgress"`
	RideID     uuid.UUID `json:"rideId,omitempty"`
	BikeID     uuid.UUID `json:"bikeId,omitempty"`
	StartedAt  time.Time `json:"startedAt,omitempty"`
}

func (a *API) currentRideHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	current, err := a.rr.CurrentForUser(c, cust.ID)
	if err != nil {
		logger.Error("Failed to get current ride", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if current == nil {
		c.JSON(http.StatusOK, RideState{InProgress: false})
		return
	}

	c.JSON(http.StatusOK, RideState{
		InProgress: true,
		RideID:     current.ID,
		BikeID:     current.BikeID,
		StartedAt:  current.StartedAt,
	})
}

func (a *API) rideHistoryHandler(c *gin.Context) {
	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	rides, err := a.rr.ForUser(c, cust.ID)
	if err != nil {
		middleware.GetLogger(c).Error("Failed to list rides", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, rides)
}

func (a *API) cancelRideHandler(c *gin.Context) {
	rideID, err := uuid.Parse(c.Param("rideId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid rideId"})
		return
	}

	cancelled, err := a.billing.CancelRide(c, rideID, adminID(c))
	if err != nil {
		switch {
		case errors.Is(err, ride.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "RIDE_NOT_FOUND", "message": "Ride not found"})
		case errors.Is(err, ride.ErrNotInProgress):
			c.JSON(http.StatusConflict, gin.H{"code": "RIDE_NOT_IN_PROGRESS", "message": "Ride is not in progress"})
		default:
			middleware.GetLogger(c).Error("Failed to cancel ride", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, cancelled)
}
