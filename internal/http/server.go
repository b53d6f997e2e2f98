package http

import (
	"context"
	"fmt"

	"edrs-docstore/internal/auth"
	"edrs-docstore/internal/config"
	"edrs-docstore/internal/http/handler"
	"edrs-docstore/internal/http/middleware"
	"edrs-docstore/internal/rbac/presets"
	"edrs-docstore/pkg/validator"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// multipartOverhead leaves room for form fields and boundaries on top of the file.
const multipartOverhead = 1 << 20

type ServerDependencies struct {
	Config         *config.Config
	Documents      handler.DocumentService
	Storage        handler.StorageService
	Users          handler.UserProvisioner
	AuditLogger    handler.AuditRecorder
	AuditEvents    handler.AuditQuerier
	HealthChecks   map[string]handler.Pinger
	AuthMiddleware *auth.Middleware
	RBACMiddleware *auth.RBACMiddleware
}

type Server struct {
	echo *echo.Echo
	deps *ServerDependencies
}

func NewServer(deps *ServerDependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = CustomHTTPErrorHandler
	e.Validator = validator.New()

	e.Server.ReadTimeout = deps.Config.Server.ReadTimeout
	e.Server.WriteTimeout = deps.Config.Server.WriteTimeout
	e.IPExtractor = clientIPExtractor(deps.Config.Server.TrustProxyHeaders)

	// Request ID first, so every later log line carries it.
	e.Use(middleware.RequestID())
	e.Use(middleware.Metrics())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit(bodyLimit(deps.Config.Storage.MaxUploadSize)))

	healthHandler := handler.NewHealthHandler(deps.HealthChecks)
	documentHandler := handler.NewDocumentHandler(deps.Documents, deps.AuditLogger, deps.Config.App.PageSize)
	storageHandler := handler.NewStorageHandler(deps.Storage, deps.AuditLogger)
	adminHandler := handler.NewAdminHandler(deps.Users, deps.AuditEvents)

	e.GET("/health", healthHandler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if deps.Config.Server.EnablePprof {
		registerPprofRoutes(e)
	}

	rl := deps.Config.RateLimit
	ipLimiter := middleware.NewRateLimiter("ip", float64(rl.RPS), rl.Burst)
	userLimiter := middleware.NewRateLimiter("user", float64(rl.RPS), rl.Burst)

	api := e.Group("/api")
	api.Use(ipLimiter.Middleware())
	api.Use(deps.AuthMiddleware.RequireJWT())
	api.Use(userLimiter.Middleware())

	api.POST("/documents", documentHandler.Upload)
	api.GET("/documents", documentHandler.List)
	api.POST("/documents/download-url", documentHandler.DownloadURLByKey)
	api.GET("/documents/:id", documentHandler.Get)
	api.GET("/documents/:id/download-url", documentHandler.DownloadURL)
	api.POST("/documents/:id/analysis-results", documentHandler.AttachAnalysis,
		deps.RBACMiddleware.RequireAction(presets.ResourceAnalysis, presets.ActionWrite))

	api.GET("/storage/browse", storageHandler.Browse,
		deps.RBACMiddleware.RequireAction(presets.ResourceStorage, presets.ActionBrowse))
	api.GET("/storage/stats", storageHandler.Stats,
		deps.RBACMiddleware.RequireAction(presets.ResourceStorage, presets.ActionRead))

	admin := api.Group("/admin", deps.RBACMiddleware.RequireAdministrator())
	admin.PUT("/users/:id", adminHandler.ProvisionUser)
	admin.GET("/audit-events", adminHandler.ListAuditEvents)

	return &Server{
		echo: e,
		deps: deps,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() *echo.Echo {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// clientIPExtractor keys the IP rate limiter. Forwarding headers are ignored unless a
// proxy is configured to set them, and even then only when the peer is a private address.
func clientIPExtractor(trustProxyHeaders bool) echo.IPExtractor {
	if trustProxyHeaders {
		return echo.ExtractIPFromXFFHeader()
	}
	return echo.ExtractIPDirect()
}

func bodyLimit(maxUpload int64) string {
	return fmt.Sprintf("%dK", (maxUpload+multipartOverhead)>>10)
}
