package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"referral-rewards/internal/auth"
	"referral-rewards/internal/models"
	"referral-rewards/internal/services"
)

type AdminHandler struct {
	db                *gorm.DB
	adminService      *services.AdminService
	planService       *services.PlanService
	prizeService      *services.PrizeService
	commissionService *services.CommissionService
	auditService      *services.AuditService
}

func NewAdminHandler(db *gorm.DB, plans *services.PlanService, prizes *services.PrizeService,
	commissions *services.CommissionService, audit *services.AuditService) *AdminHandler {
	return &AdminHandler{
		db:                db,
		adminService:      services.NewAdminService(db),
		planService:       plans,
		prizeService:      prizes,
		commissionService: commissions,
		auditService:      audit,
	}
}

// AdminMiddleware checks if user is admin
func (h *AdminHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		admin, err := h.adminService.GetAdminByUserID(userID.(uint))
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not an admin"})
			c.Abort()
			return
		}

		c.Set("admin_id", admin.ID)
		c.Set("admin_role", admin.Role)
		c.Next()
	}
}

// CalculateWinners snapshots the qualified leaderboard into prize records.
func (h *AdminHandler) CalculateWinners(c *gin.Context) {
	actorID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.prizeService.CalculateWinners(actorID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoQualifiedParticipants):
			c.JSON(http.StatusOK, gin.H{
				"success": false,
				"message": "No participant meets the qualification threshold yet",
			})
		case errors.Is(err, services.ErrDistributionPersistence):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Calculation failed, safe to retry"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to calculate winners"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// DistributePrizes pays an explicit list of prize record ids. A "distribute
// everything" shortcut is deliberately not offered.
func (h *AdminHandler) DistributePrizes(c *gin.Context) {
	actorID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		PrizeIDs []uint `json:"prize_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.prizeService.DistributePrizes(actorID, req.PrizeIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Distribution failed, safe to retry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// CancelPrizes cancels an explicit list of calculated prize records.
func (h *AdminHandler) CancelPrizes(c *gin.Context) {
	actorID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		PrizeIDs []uint `json:"prize_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.prizeService.CancelPrizes(actorID, req.PrizeIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cancellation failed, safe to retry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// GetPrizes lists prize records, optionally filtered by status.
func (h *AdminHandler) GetPrizes(c *gin.Context) {
	status := models.PrizeStatus(c.Query("status"))

	records, err := h.prizeService.ListPrizes(status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get prize records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    records,
		"count":   len(records),
	})
}

// GetPlans lists all commission plan versions
func (h *AdminHandler) GetPlans(c *gin.Context) {
	plans, err := h.planService.ListPlans()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get plans"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    plans,
	})
}

// CreatePlan inserts a new commission plan version
func (h *AdminHandler) CreatePlan(c *gin.Context) {
	var input services.PlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := h.planService.CreatePlan(input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    plan,
	})
}

// SetDefaultPlan switches payouts over to the given plan version.
func (h *AdminHandler) SetDefaultPlan(c *gin.Context) {
	planID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan id"})
		return
	}

	if err := h.planService.SetDefaultPlan(uint(planID)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ApproveCommission advances a pending commission transaction to approved.
func (h *AdminHandler) ApproveCommission(c *gin.Context) {
	h.advanceCommission(c, h.commissionService.ApproveTransaction)
}

// PayCommission advances an approved commission transaction to paid.
func (h *AdminHandler) PayCommission(c *gin.Context) {
	h.advanceCommission(c, h.commissionService.MarkTransactionPaid)
}

func (h *AdminHandler) advanceCommission(c *gin.Context, advance func(actorID, transactionID uint) error) {
	actorID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	transactionID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
		return
	}

	if err := advance(actorID, uint(transactionID)); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidStatusTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update transaction"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetAuditLogs returns audit entries, newest first
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, err := h.auditService.GetLogs(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get audit logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
	})
}

// PromoteToAdmin promotes a user to admin
func (h *AdminHandler) PromoteToAdmin(c *gin.Context) {
	var req struct {
		UserID uint   `json:"user_id" binding:"required"`
		Role   string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := h.adminService.PromoteUserToAdmin(req.UserID, req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    admin,
	})
}
