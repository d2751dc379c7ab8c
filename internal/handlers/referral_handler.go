package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"referral-rewards/internal/auth"
	"referral-rewards/internal/services"
)

type ReferralHandler struct {
	db              *gorm.DB
	referralService *services.ReferralService
}

func NewReferralHandler(db *gorm.DB, referralService *services.ReferralService) *ReferralHandler {
	return &ReferralHandler{
		db:              db,
		referralService: referralService,
	}
}

// RecordReferral handles the attribution event from the registration flow.
func (h *ReferralHandler) RecordReferral(c *gin.Context) {
	var req struct {
		ReferrerID   uint   `json:"referrer_id" binding:"required"`
		ReferredID   uint   `json:"referred_id" binding:"required"`
		ReferralCode string `json:"referral_code"`
		Source       string `json:"source"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	relationship, err := h.referralService.RecordReferral(req.ReferrerID, req.ReferredID, req.ReferralCode, req.Source)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateRelationship):
			// Already attributed is a normal outcome for the caller.
			c.JSON(http.StatusConflict, gin.H{"error": "User is already attributed to a referrer"})
		case errors.Is(err, services.ErrSelfReferral):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Users cannot refer themselves"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record referral"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    relationship,
	})
}

// GetReferrals returns the direct referrals of the current user
func (h *ReferralHandler) GetReferrals(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	referrals, err := h.referralService.GetUserReferrals(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get referrals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    referrals,
		"count":   len(referrals),
	})
}

// GetReferralSummary returns referral statistics for the current user
func (h *ReferralHandler) GetReferralSummary(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	summary, err := h.referralService.GetReferralSummary(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get referral summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    summary,
	})
}

// DeactivateRelationship turns off an edge while keeping it as history.
func (h *ReferralHandler) DeactivateRelationship(c *gin.Context) {
	var req struct {
		RelationshipID uint `json:"relationship_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.referralService.DeactivateRelationship(req.RelationshipID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Active relationship not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate relationship"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
