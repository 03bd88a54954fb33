package controller

import (
	"context"
	"fmt"
	"html/template"

	"github.com/postflowhq/postflow/internal/assets"
	"github.com/postflowhq/postflow/internal/config"
	"github.com/postflowhq/postflow/internal/redirect"
	"github.com/postflowhq/postflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog/log"
)

type CallbackControllerConfig struct {
	DashboardPath  string
	HomePath       string
	SuccessDelayMS int
	ErrorDelayMS   int
}

// CallbackController serves the page the provider redirects the browser to.
// The outcome classification happens in the redirect handler; this controller
// renders it, and the page script plays the part of the window: post a
// message and close when opened as a popup, navigate otherwise.
type CallbackController struct {
	config   CallbackControllerConfig
	router   *gin.RouterGroup
	handler  *redirect.Handler
	template *template.Template
}

// outcomeView is the payload embedded into the page script.
type outcomeView struct {
	Success         bool   `json:"success"`
	Username        string `json:"username,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
	NextURL         string `json:"nextUrl"`
}

type callbackPageData struct {
	Title          string
	Message        string
	Outcome        outcomeView
	SuccessDelayMS int
	ErrorDelayMS   int
}

func NewCallbackController(controllerConfig CallbackControllerConfig, router *gin.RouterGroup, exchange *service.ExchangeService) *CallbackController {
	if controllerConfig.SuccessDelayMS == 0 {
		controllerConfig.SuccessDelayMS = 1500
	}

	if controllerConfig.ErrorDelayMS == 0 {
		controllerConfig.ErrorDelayMS = 3000
	}

	handler := redirect.NewHandler(redirect.HandlerConfig{
		DashboardPath: controllerConfig.DashboardPath,
		HomePath:      controllerConfig.HomePath,
	}, &exchangeAdapter{exchange: exchange})

	return &CallbackController{
		config:  controllerConfig,
		router:  router,
		handler: handler,
	}
}

func (controller *CallbackController) Init() error {
	parsed, err := template.New("callback").Parse(assets.CallbackPage)

	if err != nil {
		return fmt.Errorf("failed to parse callback page template: %w", err)
	}

	controller.template = parsed
	return nil
}

func (controller *CallbackController) SetupRoutes() {
	controller.router.GET("/oauth/callback", controller.callbackHandler)
}

func (controller *CallbackController) callbackHandler(c *gin.Context) {
	params := redirect.ParamsFromQuery(c.Request.URL.Query())
	outcome := controller.handler.Handle(c.Request.Context(), params)

	title := "Account connected"

	if !outcome.Success {
		title = "Something went wrong"
		log.Warn().Str("message", outcome.Message).Msg("Authorization callback failed")
	}

	data := callbackPageData{
		Title:          title,
		Message:        outcome.Message,
		Outcome:        controller.outcomeView(outcome),
		SuccessDelayMS: controller.config.SuccessDelayMS,
		ErrorDelayMS:   controller.config.ErrorDelayMS,
	}

	c.Status(200)
	c.Header("Content-Type", "text/html; charset=utf-8")

	if err := controller.template.Execute(c.Writer, data); err != nil {
		log.Error().Err(err).Msg("Failed to render callback page")
	}
}

func (controller *CallbackController) outcomeView(outcome redirect.Outcome) outcomeView {
	if !outcome.Success {
		return outcomeView{
			NextURL: controller.handler.HomePath(),
		}
	}

	nextURL := controller.handler.DashboardPath()

	queries, err := query.Values(config.DashboardQuery{
		Username: outcome.Username,
		Linked:   outcome.Action == "link",
	})

	if err == nil {
		nextURL = nextURL + "?" + queries.Encode()
	}

	return outcomeView{
		Success:         true,
		Username:        outcome.Username,
		ProfileImageURL: outcome.ProfileImageURL,
		NextURL:         nextURL,
	}
}

// exchangeAdapter narrows the exchange service to what the redirect handler
// needs.
type exchangeAdapter struct {
	exchange *service.ExchangeService
}

func (a *exchangeAdapter) Exchange(ctx context.Context, code string, state string) (redirect.Result, error) {
	result, err := a.exchange.Exchange(ctx, service.ExchangeRequest{
		Code:  code,
		State: state,
	})

	if err != nil {
		return redirect.Result{}, err
	}

	return redirect.Result{
		Username:        result.Username,
		UserID:          result.UserID,
		Action:          result.Action,
		ProfileImageURL: result.ProfileImageURL,
	}, nil
}
