package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/zmooth/console/docs"
	"github.com/zmooth/console/internal/api/handler"
	"github.com/zmooth/console/internal/api/middleware"
	"github.com/zmooth/console/internal/core/domain"
	"github.com/zmooth/console/internal/core/ports"
)

// Deps is everything the auth stub router needs.
type Deps struct {
	Auth     ports.AuthService
	Accounts ports.AccountLister
	Sessions ports.RefreshStore

	Cookie      handler.CookieConfig
	CORSOrigins []string

	// Registerer and Gatherer default to the prometheus globals.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	Log zerolog.Logger
}

// NewRouter builds the auth stub's Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
		ExposeHeaders:    []string{middleware.HeaderProcessTime},
		AllowCredentials: true,
	}))
	e.Use(middleware.ProcessTime())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:                 "authstub",
		Registerer:                d.Registerer,
		DoNotUseRequestPathFor404: true,
	}))

	authHandler := handler.NewAuthHandler(d.Auth, d.Cookie)
	requireAuth := middleware.Auth(d.Auth)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", authHandler.Me, requireAuth)

	// --- Super-admin routes ---
	if d.Accounts != nil {
		adminHandler := handler.NewAdminHandler(d.Accounts)
		e.GET("/super-admin/accounts", adminHandler.ListAccounts, requireAuth, middleware.RequireRole(domain.RoleSuper))
	}

	// --- Probes and tooling ---
	deps := map[string]handler.Pinger{}
	if d.Sessions != nil {
		deps["refresh_store"] = d.Sessions
	}
	healthHandler := handler.NewHealthHandler(deps)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
