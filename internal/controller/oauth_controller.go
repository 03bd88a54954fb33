package controller

import (
	"errors"
	"strings"

	"github.com/postflowhq/postflow/internal/config"
	"github.com/postflowhq/postflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type OAuthControllerConfig struct {
	SessionCookieName string
}

type OAuthController struct {
	config    OAuthControllerConfig
	router    *gin.RouterGroup
	authorize *service.AuthorizeService
	exchange  *service.ExchangeService
	sessions  *service.SessionService
	metrics   *service.MetricsService
}

func NewOAuthController(controllerConfig OAuthControllerConfig, router *gin.RouterGroup, authorize *service.AuthorizeService, exchange *service.ExchangeService, sessions *service.SessionService, metrics *service.MetricsService) *OAuthController {
	return &OAuthController{
		config:    controllerConfig,
		router:    router,
		authorize: authorize,
		exchange:  exchange,
		sessions:  sessions,
		metrics:   metrics,
	}
}

func (controller *OAuthController) SetupRoutes() {
	oauthGroup := controller.router.Group("/oauth")
	oauthGroup.POST("/authorize", controller.authorizeHandler)
	oauthGroup.POST("/exchange", controller.exchangeHandler)
}

func (controller *OAuthController) authorizeHandler(c *gin.Context) {
	var req config.AuthorizeRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Failed to bind authorize request")
		c.JSON(400, config.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	if req.UserID == "" {
		req.UserID = controller.sessionUser(c)
	}

	result, err := controller.authorize.Authorize(c.Request.Context(), service.AuthorizeRequest{
		UserID:  req.UserID,
		IsLogin: req.IsLogin,
		Origin:  req.Origin,
	})

	if err != nil {
		log.Error().Err(err).Msg("Failed to create authorization URL")
		controller.recordAuthorize("error")
		controller.respondError(c, err)
		return
	}

	controller.recordAuthorize("ok")

	c.JSON(200, config.AuthorizeResponse{
		AuthURL: result.AuthURL,
		State:   result.State,
	})
}

func (controller *OAuthController) exchangeHandler(c *gin.Context) {
	var req config.ExchangeRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Failed to bind exchange request")
		c.JSON(400, config.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	result, err := controller.exchange.Exchange(c.Request.Context(), service.ExchangeRequest{
		Code:  req.Code,
		State: req.State,
	})

	if err != nil {
		log.Error().Err(err).Msg("Failed to complete authorization")
		controller.recordExchange("error")
		controller.respondError(c, err)
		return
	}

	controller.recordExchange("ok")

	c.JSON(200, config.ExchangeResponse{
		Success:         true,
		Username:        result.Username,
		UserID:          result.UserID,
		Action:          result.Action,
		ProfileImageURL: result.ProfileImageURL,
	})
}

// sessionUser resolves the authenticated user from the session cookie or a
// bearer token. Returns empty when neither is present or valid.
func (controller *OAuthController) sessionUser(c *gin.Context) string {
	if controller.sessions == nil {
		return ""
	}

	token, err := c.Cookie(controller.config.SessionCookieName)

	if err != nil || token == "" {
		header := c.GetHeader("Authorization")

		if after, ok := strings.CutPrefix(header, "Bearer "); ok {
			token = after
		}
	}

	if token == "" {
		return ""
	}

	userID, err := controller.sessions.ValidateSession(token)

	if err != nil {
		log.Debug().Err(err).Msg("Ignoring invalid session token")
		return ""
	}

	return userID
}

func (controller *OAuthController) respondError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	var configErr *service.ConfigurationError
	var upstreamErr *service.UpstreamExchangeError
	var identityErr *service.IdentityFetchError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(400, config.ErrorResponse{
			Error: validationErr.Message,
		})
	case errors.Is(err, service.ErrStateNotFound):
		res := config.ErrorResponse{
			Error: "Invalid or expired state parameter",
		}

		// Diagnostic context stays out of production responses.
		if gin.Mode() != gin.ReleaseMode {
			res.RecentStates = controller.exchange.RecentStates(c.Request.Context())
		}

		c.JSON(400, res)
	case errors.As(err, &configErr):
		c.JSON(500, config.ErrorResponse{
			Error:   "Server configuration error",
			Details: configErr.Setting,
		})
	case errors.As(err, &upstreamErr):
		c.JSON(500, config.ErrorResponse{
			Error:   "Authentication failed",
			Details: upstreamErr.Body,
		})
	case errors.As(err, &identityErr):
		c.JSON(500, config.ErrorResponse{
			Error:   "Authentication failed",
			Details: identityErr.Error(),
		})
	default:
		c.JSON(500, config.ErrorResponse{
			Error: "Internal server error",
		})
	}
}

func (controller *OAuthController) recordAuthorize(outcome string) {
	if controller.metrics != nil {
		controller.metrics.RecordAuthorize(outcome)
	}
}

func (controller *OAuthController) recordExchange(outcome string) {
	if controller.metrics != nil {
		controller.metrics.RecordExchange(outcome)
	}
}
