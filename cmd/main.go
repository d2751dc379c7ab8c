package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"referral-rewards/internal/auth"
	"referral-rewards/internal/config"
	"referral-rewards/internal/database"
	"referral-rewards/internal/handlers"
	"referral-rewards/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// Initialize services
	auditService := services.NewAuditService(db)
	referralService := services.NewReferralService(db)
	planService := services.NewPlanService(db)
	commissionService := services.NewCommissionService(db, planService, referralService, auditService)
	leaderboardService := services.NewLeaderboardService(db, cfg.Rewards.QualificationThreshold)
	prizeService := services.NewPrizeService(db, leaderboardService, auditService)

	// Surface plan misconfiguration at startup instead of at payout time
	if err := planService.ValidateActivePlan(); err != nil {
		if errors.Is(err, services.ErrNoActivePlan) {
			log.Printf("Warning: %v, configure a default commission plan before distributing", err)
		} else {
			log.Fatalf("Commission plan check failed: %v", err)
		}
	}

	// Initialize handlers
	referralHandler := handlers.NewReferralHandler(db, referralService)
	investmentHandler := handlers.NewInvestmentHandler(commissionService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)
	adminHandler := handlers.NewAdminHandler(db, planService, prizeService, commissionService, auditService)

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Public leaderboard read
	router.GET("/api/leaderboard", leaderboardHandler.GetLeaderboard)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Referral attribution and reads
		api.POST("/referrals", referralHandler.RecordReferral)
		api.GET("/referrals", referralHandler.GetReferrals)
		api.GET("/referrals/stats", referralHandler.GetReferralSummary)

		// Investment-completion event from the checkout collaborator
		api.POST("/investments/complete", investmentHandler.CompleteInvestment)
		api.GET("/investments/:id/commissions", investmentHandler.GetInvestmentCommissions)

		// Commission ledger reads
		api.GET("/commissions", investmentHandler.GetMyCommissions)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(adminHandler.AdminMiddleware())
	{
		// Leaderboard incentive
		admin.POST("/prizes/calculate", adminHandler.CalculateWinners)
		admin.POST("/prizes/distribute", adminHandler.DistributePrizes)
		admin.POST("/prizes/cancel", adminHandler.CancelPrizes)
		admin.GET("/prizes", adminHandler.GetPrizes)

		// Commission plan administration
		admin.GET("/plans", adminHandler.GetPlans)
		admin.POST("/plans", adminHandler.CreatePlan)
		admin.POST("/plans/:id/default", adminHandler.SetDefaultPlan)

		// Commission payout workflow
		admin.POST("/commissions/:id/approve", adminHandler.ApproveCommission)
		admin.POST("/commissions/:id/pay", adminHandler.PayCommission)

		// Referral edge administration
		admin.POST("/referrals/deactivate", referralHandler.DeactivateRelationship)

		// Audit trail
		admin.GET("/audit-logs", adminHandler.GetAuditLogs)
		admin.POST("/users/promote", adminHandler.PromoteToAdmin)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
