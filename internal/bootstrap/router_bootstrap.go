package bootstrap

import (
	"fmt"
	"strings"

	"github.com/postflowhq/postflow/internal/config"
	"github.com/postflowhq/postflow/internal/controller"
	"github.com/postflowhq/postflow/internal/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func (app *BootstrapApp) setupRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	if app.config.TrustedProxies != "" {
		err := engine.SetTrustedProxies(strings.Split(app.config.TrustedProxies, ","))

		if err != nil {
			return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
		}
	}

	zerologMiddleware := middleware.NewZerologMiddleware()

	if err := zerologMiddleware.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize zerolog middleware: %w", err)
	}

	engine.Use(zerologMiddleware.Middleware())

	rateLimitMiddleware := middleware.NewRateLimitMiddleware(middleware.RateLimitMiddlewareConfig{
		Rate:  rate.Limit(1),
		Burst: 10,
		Paths: []string{"/api/oauth/authorize"},
	})

	if err := rateLimitMiddleware.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize rate limit middleware: %w", err)
	}

	engine.Use(rateLimitMiddleware.Middleware())

	apiRouter := engine.Group("/api")

	oauthController := controller.NewOAuthController(controller.OAuthControllerConfig{
		SessionCookieName: config.SessionCookieName,
	}, apiRouter, app.services.authorizeService, app.services.exchangeService, app.services.sessionService, app.services.metricsService)

	oauthController.SetupRoutes()

	callbackController := controller.NewCallbackController(controller.CallbackControllerConfig{
		DashboardPath: "/dashboard",
		HomePath:      "/",
	}, &engine.RouterGroup, app.services.exchangeService)

	if err := callbackController.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize callback controller: %w", err)
	}

	callbackController.SetupRoutes()

	healthController := controller.NewHealthController(apiRouter)
	healthController.SetupRoutes()

	engine.GET("/metrics", gin.WrapH(app.services.metricsService.Handler()))

	return engine, nil
}
