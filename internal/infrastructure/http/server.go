package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handlers "github.com/thekiqdev/raceflow-hub-sub001/internal/adapter/handler/http"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/config"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/middleware/auth"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/usecase"
	applogger "github.com/thekiqdev/raceflow-hub-sub001/pkg/logger"
	"go.uber.org/zap"
)

const webhookPath = "/api/webhooks/asaas"

// Services are the use cases the HTTP routes are served by
type Services struct {
	Registrations *usecase.RegistrationService
	Transfers     *usecase.TransferService
	Settings      *usecase.SettingsService
	Webhooks      *usecase.WebhookService
}

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	services Services
	health   HealthCheck
}

func NewServer(cfg *config.Config, logger *zap.Logger, services Services, health HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()
	applogger.WithEchoLogger(e, logger)

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(applogger.NewEchoRequestLogger(logger))
	e.Use(echoprometheus.NewMiddleware("raceflow"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.HTTP.AllowedOrigins,
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	return &Server{
		config:   cfg,
		logger:   logger,
		echo:     e,
		services: services,
		health:   health,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", echoprometheus.NewHandler())

	// Initialize handlers
	webhookHandler := handlers.NewAsaasWebhookHandler(s.services.Webhooks, s.config.Asaas.WebhookToken, s.logger)
	registrationHandler := handlers.NewRegistrationHandler(s.services.Registrations, s.logger)
	transferHandler := handlers.NewTransferHandler(s.services.Transfers, s.services.Settings, s.logger)
	adminHandler := handlers.NewAdminHandler(s.services.Transfers, s.logger)

	// Gateway callbacks authenticate with the shared token, not a JWT
	s.echo.POST(webhookPath, webhookHandler.Handle)

	jwtConfig := auth.JWTConfig{
		Secret:    s.config.JWT.Secret,
		Logger:    s.logger,
		AdminRole: s.config.JWT.AdminRole,
		SkipPaths: []string{webhookPath},
	}
	api := s.echo.Group("/api", auth.JWTMiddleware(jwtConfig))

	registrations := api.Group("/registrations")
	registrations.POST("", registrationHandler.Create)
	registrations.GET("/:id", registrationHandler.Get)
	registrations.POST("/:id/payment", registrationHandler.EnsurePayment)

	transfers := api.Group("/transfers")
	transfers.POST("", transferHandler.Create)
	transfers.GET("/:id", transferHandler.Get)
	transfers.POST("/:id/payment", transferHandler.GenerateFeePayment)

	admin := api.Group("/admin", auth.RequireAdmin(s.logger))
	admin.PUT("/transfers/:id", adminHandler.DecideTransfer)
	admin.POST("/registrations/:id/transfer", adminHandler.DirectTransfer)
}

func (s *Server) healthCheck(c echo.Context) error {
	status := http.StatusOK
	body := map[string]string{
		"status":  "healthy",
		"service": s.config.Service.Name,
	}
	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
		}
	}
	return c.JSON(status, body)
}
