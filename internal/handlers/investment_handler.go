package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"referral-rewards/internal/auth"
	"referral-rewards/internal/services"
)

// InvestmentHandler receives investment-completion events from the checkout
// collaborator and exposes the commission ledger reads.
type InvestmentHandler struct {
	commissionService *services.CommissionService
}

func NewInvestmentHandler(commissionService *services.CommissionService) *InvestmentHandler {
	return &InvestmentHandler{
		commissionService: commissionService,
	}
}

// CompleteInvestment triggers the commission distribution for one completed
// investment.
func (h *InvestmentHandler) CompleteInvestment(c *gin.Context) {
	var req struct {
		InvestmentID string          `json:"investment_id" binding:"required"`
		InvestorID   uint            `json:"investor_id" binding:"required"`
		Amount       decimal.Decimal `json:"investment_amount" binding:"required"`
		PackageName  string          `json:"package_name"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.commissionService.Distribute(req.InvestmentID, req.InvestorID, req.Amount, req.PackageName)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoActivePlan):
			// Configuration problem for the operator, not a retryable call.
			c.JSON(http.StatusConflict, gin.H{"error": "No active commission plan configured"})
		case errors.Is(err, services.ErrDistributionPersistence):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Distribution failed, safe to retry"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// GetMyCommissions returns the current user's commission transactions
func (h *InvestmentHandler) GetMyCommissions(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	transactions, err := h.commissionService.GetUserTransactions(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get commissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    transactions,
		"count":   len(transactions),
	})
}

// GetInvestmentCommissions returns the transactions created for one
// investment, in level order.
func (h *InvestmentHandler) GetInvestmentCommissions(c *gin.Context) {
	investmentID := c.Param("id")

	transactions, err := h.commissionService.GetInvestmentTransactions(investmentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get commissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    transactions,
		"count":   len(transactions),
	})
}
