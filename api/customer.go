package api

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Xybronix/EcoMobile-backend-sub000/internal/middleware"
)

type profileResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email,omitempty"`
	Name               string     `json:"name,omitempty"`
	DepositExemptUntil *time.Time `json:"depositExemptUntil,omitempty"`
}

func (a *API) profileHandler(c *gin.Context) {
	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	resp := profileResponse{
		ID:    cust.ID,
		Email: cust.Email.String,
		Name:  cust.Name.String,
	}
	if cust.DepositExemptUntil.Valid {
		resp.DepositExemptUntil = &cust.DepositExemptUntil.Time
	}
	c.JSON(http.StatusOK, resp)
}

// syncProfileHandler pulls email and name from the identity provider's
// userinfo endpoint and stores them on the customer row.
func (a *API) syncProfileHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	info, err := a.auth0.GetUserInfo(c, token)
	if err != nil {
		logger.Error("Failed to fetch user info", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"code": "USERINFO_FAILED", "message": "Could not fetch profile from identity provider"})
		return
	}

	if err := a.cr.UpdateProfile(c, cust.Auth0ID, info.Email, info.Name); err != nil {
		logger.Error("Failed to update profile", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type depositExemptionBody struct {
	// Until grants the exemption up to this time; empty revokes it.
	Until string `json:"until"`
}

func (a *API) depositExemptionHandler(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("customerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid customerId"})
		return
	}

	var body depositExemptionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	var until sql.NullTime
	if body.Until != "" {
		t, err := time.Parse(time.RFC3339, body.Until)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid until format"})
			return
		}
		until = sql.NullTime{Time: t, Valid: true}
	}

	if err := a.cr.SetDepositExemption(c, customerID, until); err != nil {
		middleware.GetLogger(c).Error("Failed to set deposit exemption", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
