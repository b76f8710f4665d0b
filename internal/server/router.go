// Package server assembles the HTTP API: middleware, handlers and routes.
package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"leavedesk/internal/config"
	"leavedesk/internal/handlers"
	"leavedesk/internal/logger"
	"leavedesk/internal/middleware"
	"leavedesk/internal/services"
)

// Services are the business services behind the HTTP API.
type Services struct {
	Accounts services.AccountServicer
	Leave    services.LeaveServicer
	Audit    services.AuditServicer
	Health   services.HealthServicer
}

// NewRouter builds the Gin engine serving the API.
func NewRouter(cfg *config.Config, svc Services) *gin.Engine {
	issuer := middleware.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpirationDur, cfg.RefreshExpirationDur)

	authHandler := handlers.NewAuthHandler(svc.Accounts, issuer)
	leaveHandler := handlers.NewLeaveHandler(svc.Leave, svc.Audit, cfg.MaxUploadBytes)
	adminHandler := handlers.NewAdminHandler(svc.Accounts, svc.Leave, svc.Audit)
	healthHandler := handlers.NewHealthHandler(svc.Health)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	if h := corsMiddleware(cfg); h != nil {
		router.Use(h)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health and metrics
	router.GET("/api/health", healthHandler.Health)
	ops := router.Group("/api", middleware.OpsKeyMiddleware(cfg.OpsAPIKey))
	ops.GET("/health/detailed", healthHandler.Detailed)
	ops.GET("/metrics", healthHandler.Metrics)

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(issuer))

	protected.POST("/auth/logout", authHandler.Logout)
	protected.GET("/profile", authHandler.GetProfile)
	protected.GET("/dashboard", leaveHandler.GetDashboard)
	protected.GET("/accounts/:id/records", leaveHandler.GetAccountRecords)

	leave := protected.Group("/leave")
	leave.POST("", leaveHandler.SubmitLeave)
	leave.GET("", leaveHandler.ListMyRecords)
	leave.GET("/:id", leaveHandler.GetLeaveRecord)
	leave.DELETE("/:id", leaveHandler.DeleteLeaveRecord)

	// Administrator routes
	admin := protected.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.POST("/accounts", adminHandler.CreateAccount)
	admin.GET("/accounts", adminHandler.ListAccounts)
	admin.GET("/accounts/:id", adminHandler.GetAccount)
	admin.PUT("/accounts/:id/balances", adminHandler.UpdateBalances)
	admin.PUT("/accounts/:id/password", adminHandler.UpdatePassword)
	admin.DELETE("/accounts/:id", adminHandler.DeleteAccount)
	admin.PUT("/leave/:id/days", adminHandler.OverrideDays)

	return router
}

// corsMiddleware allows every origin outside production. In production only
// CORSAllowedOrigins are allowed, and without any the API is same-origin only.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	switch {
	case len(cfg.CORSAllowedOrigins) > 0:
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
		corsConfig.AllowCredentials = true
	case cfg.IsProduction():
		logger.Get().Warn("CORS_ALLOWED_ORIGINS is empty, cross-origin requests are refused")
		return nil
	default:
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Authorization", "X-API-Key", "X-Request-ID")
	corsConfig.AddExposeHeaders("X-Request-ID")
	return cors.New(corsConfig)
}
