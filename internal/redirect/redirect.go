// Package redirect implements the browser-facing half of the OAuth callback:
// classifying the provider's redirect parameters, driving the exchange and
// deciding the popup-versus-full-page transition. The HTTP rendering of these
// decisions lives in the callback controller.
package redirect

import (
	"context"
	"net/url"
)

// MessageTypeSuccess is the discriminator of the one-shot message a popup
// posts to its opener.
const MessageTypeSuccess = "X_AUTH_SUCCESS"

// Message is the popup-to-opener handoff. It is a single-message,
// single-consumer contract, not a general event bus.
type Message struct {
	Type            string `json:"type"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// Window abstracts the browser window the handler drives. The production
// implementation is the script on the rendered callback page; tests use a
// fake.
type Window interface {
	HasOpener() bool
	PostMessage(msg Message)
	Navigate(path string)
	Close()
}

// Result is what a completed exchange yields.
type Result struct {
	Username        string
	UserID          string
	Action          string
	ProfileImageURL string
}

// Exchanger completes the backend half of the callback.
type Exchanger interface {
	Exchange(ctx context.Context, code string, state string) (Result, error)
}

// Params are the recognized callback query parameters.
type Params struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

func ParamsFromQuery(query url.Values) Params {
	return Params{
		Code:             query.Get("code"),
		State:            query.Get("state"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
	}
}

// Outcome is the terminal UI state of a callback. The delays applied around
// it are presentation only; state cleanup happened in the exchanger.
type Outcome struct {
	Success         bool
	Message         string
	Username        string
	UserID          string
	Action          string
	ProfileImageURL string
}

type HandlerConfig struct {
	DashboardPath string
	HomePath      string
}

type Handler struct {
	config    HandlerConfig
	exchanger Exchanger
}

func NewHandler(config HandlerConfig, exchanger Exchanger) *Handler {
	if config.DashboardPath == "" {
		config.DashboardPath = "/dashboard"
	}

	if config.HomePath == "" {
		config.HomePath = "/"
	}

	return &Handler{
		config:    config,
		exchanger: exchanger,
	}
}

// Handle classifies the callback parameters and, when they are well formed,
// runs the exchange. A provider error or missing parameters never reach the
// exchanger.
func (h *Handler) Handle(ctx context.Context, params Params) Outcome {
	if params.Error != "" {
		message := params.ErrorDescription

		if message == "" {
			message = "Authentication failed"
		}

		return Outcome{Message: message}
	}

	if params.Code == "" || params.State == "" {
		return Outcome{Message: "Missing authorization parameters"}
	}

	result, err := h.exchanger.Exchange(ctx, params.Code, params.State)

	if err != nil {
		return Outcome{Message: "Authentication failed"}
	}

	return Outcome{
		Success:         true,
		Message:         "Account connected",
		Username:        result.Username,
		UserID:          result.UserID,
		Action:          result.Action,
		ProfileImageURL: result.ProfileImageURL,
	}
}

// Apply drives the window to its terminal state. A popup posts exactly one
// success message to its opener and closes; a full page navigates away so the
// user is never left on a dead page.
func (h *Handler) Apply(outcome Outcome, w Window) {
	if outcome.Success {
		if w.HasOpener() {
			w.PostMessage(Message{
				Type:            MessageTypeSuccess,
				Username:        outcome.Username,
				ProfileImageURL: outcome.ProfileImageURL,
			})
			w.Close()
			return
		}

		w.Navigate(h.config.DashboardPath)
		return
	}

	if w.HasOpener() {
		w.Close()
		return
	}

	w.Navigate(h.config.HomePath)
}

// DashboardPath is exposed for the page renderer.
func (h *Handler) DashboardPath() string {
	return h.config.DashboardPath
}

// HomePath is exposed for the page renderer.
func (h *Handler) HomePath() string {
	return h.config.HomePath
}
