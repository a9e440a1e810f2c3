// internal/router/router.go
package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/druklands/landledger/internal/config"
	"github.com/druklands/landledger/internal/handlers"
	"github.com/druklands/landledger/internal/metrics"
	"github.com/druklands/landledger/internal/middleware"
	"github.com/druklands/landledger/internal/models"
	"github.com/druklands/landledger/internal/services"
	"github.com/druklands/landledger/internal/utils"
)

// Initialize wires services, handlers, and routes. It fails when the
// governance bootstrap check does not hold, so a misconfigured
// deployment never starts serving.
func Initialize(db *gorm.DB, cfg *config.Config, m *metrics.Metrics) (*gin.Engine, error) {
	// Initialize services
	eventService := services.NewEventService(db, m)
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	authService := services.NewAuthService(db, cfg)
	registryService := services.NewRegistryService(db, eventService)
	tokenizationService := services.NewTokenizationService(db, eventService, registryService)
	verifierService := services.NewVerifierService(db, eventService)

	var governanceOwner models.User
	if err := db.First(&governanceOwner, "email = ?", cfg.Registry.GovernanceEmail).Error; err != nil {
		return nil, fmt.Errorf("governance owner account %s not found: %w", cfg.Registry.GovernanceEmail, err)
	}

	adminService, err := services.NewVerifierAdminService(db, eventService, verifierService, governanceOwner.ID)
	if err != nil {
		return nil, fmt.Errorf("verifier administration bootstrap failed: %w", err)
	}

	escrowService := services.NewEscrowService(db, eventService, tokenizationService, verifierService, cfg, m)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	landHandler := handlers.NewLandHandler(registryService, storageService)
	tokenHandler := handlers.NewTokenHandler(tokenizationService, verifierService)
	verifierHandler := handlers.NewVerifierHandler(verifierService, adminService)
	escrowHandler := handlers.NewEscrowHandler(escrowService)
	eventHandler := handlers.NewEventHandler(eventService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Parcel registry routes
		lands := v1.Group("/lands")
		{
			lands.GET("", middleware.OptionalAuth(), landHandler.ListLands)
			lands.GET("/:plot", middleware.OptionalAuth(), landHandler.GetLandByPlot)

			protected := lands.Group("")
			protected.Use(middleware.AuthRequired(), middleware.ApproverRequired())
			{
				protected.POST("", landHandler.RegisterLand)
				protected.PUT("/:plot/verify", landHandler.VerifyLand)
				protected.POST("/:plot/documents", middleware.UploadRateLimit(), landHandler.AttachDocument)
			}
		}

		v1.GET("/thrams/:thram/plots", landHandler.GetPlotsByThram)

		// Tokenization routes
		tokens := v1.Group("/tokens")
		{
			tokens.GET("", middleware.OptionalAuth(), tokenHandler.ListTokens)
			tokens.GET("/:id", middleware.OptionalAuth(), tokenHandler.GetToken)
			tokens.GET("/:id/verification", tokenHandler.GetVerification)

			minting := tokens.Group("")
			minting.Use(middleware.AuthRequired(), middleware.ApproverRequired())
			{
				minting.POST("/thram", tokenHandler.MintThramToken)
				minting.POST("/plot", tokenHandler.MintPlotToken)
				minting.POST("/fraction", tokenHandler.MintFractionToken)
			}

			verification := tokens.Group("")
			verification.Use(middleware.AuthRequired())
			{
				verification.PUT("/:id/verify/bank", tokenHandler.VerifyBankStatus)
				verification.PUT("/:id/verify/court", tokenHandler.VerifyCourtStatus)
				verification.PUT("/:id/verify/tax", tokenHandler.VerifyTaxStatus)
			}
		}

		// Verifier registry and governance routes
		verifiers := v1.Group("/verifiers")
		{
			verifiers.GET("/:id/roles/:role", verifierHandler.CheckVerifier)

			protected := verifiers.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", verifierHandler.AddVerifier)
				protected.DELETE("", verifierHandler.RemoveVerifier)
				protected.POST("/batch", verifierHandler.BatchAddVerifiers)
				protected.DELETE("/batch", verifierHandler.BatchRemoveVerifiers)
			}
		}

		v1.PUT("/governance/:scope/owner", middleware.AuthRequired(), verifierHandler.TransferOwnership)

		// Escrow settlement routes
		escrow := v1.Group("/escrow")
		escrow.Use(middleware.AuthRequired())
		{
			escrow.POST("/:id/list", escrowHandler.ListForSale)
			escrow.PUT("/:id/verify", middleware.ApproverRequired(), escrowHandler.VerifySale)
			escrow.POST("/:id/payment-intent", escrowHandler.CreatePaymentIntent)
			escrow.POST("/:id/pay", escrowHandler.MakePayment)
			escrow.POST("/:id/transfer", escrowHandler.TransferOwnership)
			escrow.DELETE("/:id", escrowHandler.CancelSale)
			escrow.POST("/withdraw", escrowHandler.Withdraw)
			escrow.GET("/balance", escrowHandler.GetBalance)
			escrow.GET("/:id", escrowHandler.GetSale)
		}

		// Ledger event lookup
		v1.GET("/events", eventHandler.ListByEntity)
	}

	return r, nil
}
