// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/firstscanit/fsi-backend/internal/config"
	"github.com/firstscanit/fsi-backend/internal/handlers"
	"github.com/firstscanit/fsi-backend/internal/middleware"
	"github.com/firstscanit/fsi-backend/internal/services"
	"github.com/firstscanit/fsi-backend/internal/store"
	"github.com/firstscanit/fsi-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) (*gin.Engine, error) {
	return InitializeWithStore(store.NewPostgresStore(db), cfg)
}

// InitializeWithStore wires the full engine against any Store; tests use it
// with the in-memory implementation.
func InitializeWithStore(st store.Store, cfg *config.Config) (*gin.Engine, error) {
	// Initialize services
	signingService := services.NewSigningService()
	pufService := services.NewPUFService()

	qrService, err := services.NewQRService(cfg)
	if err != nil {
		return nil, err
	}

	artifactService, err := services.NewArtifactService(cfg)
	if err != nil {
		// Archiving is optional; a misconfigured bucket must not keep the
		// verification path down.
		logrus.WithError(err).Warn("Proof archiving disabled")
		artifactService = nil
	}

	billingService := services.NewBillingService(cfg)

	brandService := services.NewBrandService(st, cfg, signingService)
	issuanceService := services.NewIssuanceService(st, cfg, signingService, pufService, qrService, artifactService, billingService)
	verificationService := services.NewVerificationService(st, cfg, signingService, pufService, qrService)

	// Initialize handlers
	brandHandler := handlers.NewBrandHandler(brandService)
	issuanceHandler := handlers.NewIssuanceHandler(issuanceService, brandService)
	verificationHandler := handlers.NewVerificationHandler(verificationService, pufService, brandService)
	statsHandler := handlers.NewStatsHandler(st)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", brandHandler.Register)
			auth.POST("/login", brandHandler.Login)
			auth.POST("/refresh", brandHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), brandHandler.GetProfile)
		}

		// Public verification routes
		verify := v1.Group("/verify")
		verify.Use(middleware.VerifyRateLimit())
		{
			verify.POST("", middleware.OptionalAuth(), verificationHandler.Verify)
			verify.GET("/challenges", verificationHandler.Challenges)
		}

		// Issuance routes (brand only)
		batches := v1.Group("/batches")
		batches.Use(middleware.AuthRequired())
		{
			batches.POST("", middleware.IssueRateLimit(), issuanceHandler.IssueBatch)
			batches.GET("/:batchId/units", issuanceHandler.ListBatchUnits)
		}

		units := v1.Group("/units")
		units.Use(middleware.AuthRequired())
		{
			units.GET("", issuanceHandler.ListBrandUnits)
			units.GET("/:unitId/challenges", issuanceHandler.UnitChallenges)
			units.GET("/:unitId/scans", verificationHandler.ScanHistory)
		}

		// Platform statistics
		stats := v1.Group("/stats")
		{
			stats.GET("/platform", statsHandler.PlatformStats)
		}
	}

	return r, nil
}
