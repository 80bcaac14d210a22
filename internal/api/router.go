package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/bekzodm/taskhub/internal/app"
	iauth "github.com/bekzodm/taskhub/internal/auth"
	"github.com/bekzodm/taskhub/internal/handlers"
	"github.com/bekzodm/taskhub/internal/middleware"
	"github.com/bekzodm/taskhub/internal/services"
	"github.com/bekzodm/taskhub/pkg/mail"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, tokens *iauth.TokenService, mailer mail.Mailer, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	authSvc, err := services.NewAuthService(db, tokens)
	if err != nil {
		return nil, err
	}

	invitationOpts := []services.InvitationOption{
		services.WithInvitationBaseURL(cfg.Server.ClientBaseURL),
	}
	if cfg.Invitations.Expiry > 0 {
		invitationOpts = append(invitationOpts, services.WithInvitationExpiry(cfg.Invitations.Expiry))
	}
	invitationSvc, err := services.NewInvitationService(db, mailer, invitationOpts...)
	if err != nil {
		return nil, err
	}

	categorySvc, err := services.NewCategoryService(db)
	if err != nil {
		return nil, err
	}
	taskSvc, err := services.NewTaskService(db)
	if err != nil {
		return nil, err
	}

	authHandler := handlers.NewAuthHandler(authSvc, cfg.Auth.HandlerCookieSettings(), cfg.Server.UploadDir)
	invitationHandler := handlers.NewInvitationHandler(invitationSvc)
	categoryHandler := handlers.NewCategoryHandler(categorySvc)
	taskHandler := handlers.NewTaskHandler(taskSvc)

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.Server.CORSOrigin))

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db))

	public := middleware.Authenticate(tokens, false)
	protected := middleware.Authenticate(tokens, true)
	memberRoles := middleware.RequireRoles(iauth.RoleAdmin, iauth.RoleUser)

	// Auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", protected, authHandler.Me)
		auth.POST("/avatar", protected, authHandler.UploadAvatar)
	}

	// Invitations: issuing and listing require a session, validation and
	// acceptance are public since the invitee has no account yet.
	invitations := r.Group("/api/invitations")
	{
		invitations.POST("", protected, invitationHandler.Send)
		invitations.GET("", protected, invitationHandler.List)
		invitations.GET("/:token", public, invitationHandler.Validate)
		invitations.POST("/accept", public, invitationHandler.Accept)
	}

	// Categories
	categories := r.Group("/api/categories", protected, memberRoles)
	{
		categories.POST("", categoryHandler.Create)
		categories.GET("", categoryHandler.List)
		categories.GET("/:id", categoryHandler.Get)
		categories.PUT("/:id", categoryHandler.Update)
		categories.DELETE("/:id", categoryHandler.Delete)
	}

	// Tasks
	tasks := r.Group("/api/tasks", protected, memberRoles)
	{
		tasks.POST("", taskHandler.Create)
		tasks.GET("", taskHandler.List)
		tasks.GET("/:id", taskHandler.Get)
		tasks.PUT("/:id", taskHandler.Update)
		tasks.DELETE("/:id", taskHandler.Delete)
	}

	// Uploaded avatars are served statically.
	if cfg.Server.UploadDir != "" {
		r.Static("/uploads/avatars", cfg.Server.UploadDir)
	}

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
