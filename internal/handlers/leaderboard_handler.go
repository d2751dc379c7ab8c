package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"referral-rewards/internal/services"
)

type LeaderboardHandler struct {
	leaderboardService *services.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
	}
}

// GetLeaderboard returns the current direct-sales ranking. Read-only; the
// dashboards consume this.
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	entries, err := h.leaderboardService.ComputeLeaderboard(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"data":      entries,
		"count":     len(entries),
		"threshold": h.leaderboardService.QualificationThreshold(),
	})
}
