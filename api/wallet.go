package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Xybronix/EcoMobile-backend-sub000/internal/middleware"
	"github.com/Xybronix/EcoMobile-backend-sub000/wallet"
)

type walletResponse struct {
	Balance         int64 `json:"balance"`
	Deposit         int64 `json:"deposit"`
	NegativeBalance int64 `json:"negativeBalance"`
}

func (a *API) getWalletHandler(c *gin.Context) {
	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	w, err := a.billing.GetWalletBalance(c, cust.ID)
	if err != nil {
		middleware.GetLogger(c).Error("Failed to get wallet", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, walletResponse{
		Balance:         w.Balance,
		Deposit:         w.Deposit,
		NegativeBalance: w.NegativeBalance,
	})
}

type amountRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

func (a *API) topUpHandler(c *gin.Context) {
	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	txn, err := a.billing.TopUp(c, cust.ID, req.Amount, "wallet top-up")
	if err != nil {
		middleware.GetLogger(c).Error("Failed to top up wallet", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, txn)
}

func (a *API) rechargeDepositHandler(c *gin.Context) {
	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	w, err := a.billing.RechargeDeposit(c, cust.ID, req.Amount)
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			c.JSON(http.StatusBadRequest, gin.H{"code": "INSUFFICIENT_BALANCE", "message": "Balance too low to recharge deposit"})
			return
		}
		middleware.GetLogger(c).Error("Failed to recharge deposit", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, walletResponse{
		Balance:         w.Balance,
		Deposit:         w.Deposit,
		NegativeBalance: w.NegativeBalance,
	})
}

func (a *API) cashDepositHandler(c *gin.Context) {
	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	txn, err := a.wr.RequestCashDeposit(c, cust.ID, req.Amount)
	if err != nil {
		middleware.GetLogger(c).Error("Failed to create cash deposit", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, txn)
}

func (a *API) transactionsHandler(c *gin.Context) {
	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	txns, err := a.wr.TransactionsForUser(c, cust.ID)
	if err != nil {
		middleware.GetLogger(c).Error("Failed to list transactions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, txns)
}

func (a *API) validateCashDepositHandler(c *gin.Context) {
	txnID, err := uuid.Parse(c.Param("transactionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid transactionId"})
		return
	}

	txn, err := a.wr.ValidateCashDeposit(c, txnID, adminID(c))
	if err != nil {
		if errors.Is(err, wallet.ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "TRANSACTION_NOT_FOUND", "message": "Transaction not found"})
			return
		}
		if errors.Is(err, wallet.ErrTransactionProcessed) {
			c.JSON(http.StatusConflict, gin.H{"code": "ALREADY_PROCESSED", "message": "Transaction already processed"})
			return
		}
		middleware.GetLogger(c).Error("Failed to validate cash deposit", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, txn)
}
