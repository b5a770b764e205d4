package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Xybronix/EcoMobile-backend-sub000/bike"
	"github.com/Xybronix/EcoMobile-backend-sub000/internal/middleware"
	"github.com/Xybronix/EcoMobile-backend-sub000/station"
)

type bikeResponse struct {
	ID          uuid.UUID   `json:"id"`
	Label       string      `json:"label"`
	Status      bike.Status `json:"status"`
	Lat         float64     `json:"latitude"`
	Lng         float64     `json:"longitude"`
	Battery     int         `json:"batteryVoltage"`
	StationID   *uuid.UUID  `json:"stationId,omitempty"`
	StationName string      `json:"stationName,omitempty"`
	DisplayName *string     `json:"displayName,omitempty"`
	ImageURL    *string     `json:"imageUrl,omitempty"`
}

func (a *API) bikesHandler(c *gin.Context) {
	var stationID *string
	if s := c.Query("stationId"); s != "" {
		stationID = &s
	}

	bikes, err := a.br.GetBikesWithStations(c, stationID)
	if err != nil {
		middleware.GetLogger(c).Error("Failed to list bikes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]bikeResponse, 0, len(bikes))
	for _, b := range bikes {
		resp = append(resp, bikeResponse{
			ID:          b.ID,
			Label:       b.Label,
			Status:      b.Status,
			Lat:         b.Location.P.X,
			Lng:         b.Location.P.Y,
			Battery:     b.BatteryVoltage,
			StationID:   b.StationID,
			StationName: b.StationName,
			DisplayName: b.DisplayName,
			ImageURL:    b.ImageURL,
		})
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) bikeHandler(c *gin.Context) {
	b, err := a.br.GetBike(c, c.Param("id"))
	if err != nil {
		if errors.Is(err, bike.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "BIKE_NOT_FOUND", "message": "Bike not found"})
			return
		}
		middleware.GetLogger(c).Error("Failed to get bike", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, bikeResponse{
		ID:          b.ID,
		Label:       b.Label,
		Status:      b.Status,
		Lat:         b.Location.P.X,
		Lng:         b.Location.P.Y,
		Battery:     b.BatteryVoltage,
		StationID:   b.StationID,
		DisplayName: b.DisplayName,
		ImageURL:    b.ImageURL,
	})
}

type stationResponse struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Address      string       `json:"address"`
	OpeningHours string       `json:"openingHours"`
	Lat          float64      `json:"latitude"`
	Lng          float64      `json:"longitude"`
	Type         station.Type `json:"type"`
}

func (a *API) stationsHandler(c *gin.Context) {
	stations, err := a.sr.GetStations(c)
	if err != nil {
		middleware.GetLogger(c).Error("Failed to list stations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]stationResponse, 0, len(stations))
	for _, s := range stations {
		resp = append(resp, stationResponse{
			ID:           s.ID,
			Name:         s.Name,
			Address:      s.Address,
			OpeningHours: s.OpeningHours,
			Lat:          s.Location.P.X,
			Lng:          s.Location.P.Y,
			Type:         s.Type,
		})
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) plansHandler(c *gin.Context) {
	plans, err := a.pr.GetPlans(c)
	if err != nil {
		middleware.GetLogger(c).Error("Failed to list plans", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, plans)
}
