package controller_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/postflowhq/postflow/internal/controller"
	"github.com/postflowhq/postflow/internal/model"
	"github.com/postflowhq/postflow/internal/providers"
	"github.com/postflowhq/postflow/internal/service"

	"github.com/gin-gonic/gin"
	"gotest.tools/v3/assert"
)

type callbackApp struct {
	router *gin.Engine
	states *service.StateService
}

func newCallbackApp(t *testing.T) *callbackApp {
	t.Helper()

	gin.SetMode(gin.TestMode)

	databaseService := service.NewDatabaseService(service.DatabaseServiceConfig{
		DatabasePath: filepath.Join(t.TempDir(), "postflow.db"),
	})
	assert.NilError(t, databaseService.Init())

	db := databaseService.GetDatabase()

	states := service.NewStateService(service.StateServiceConfig{}, db)
	assert.NilError(t, states.Init())
	t.Cleanup(states.Stop)

	providerServer := newStubProviderServer(t)
	provider := providers.NewTwitterProvider(providers.TwitterProviderConfig{
		AuthURL:     providerServer.URL + "/authorize",
		TokenURL:    providerServer.URL + "/token",
		UserinfoURL: providerServer.URL + "/me",
	})

	exchange := service.NewExchangeService(service.ExchangeServiceConfig{
		ClientID:     "some-client-id",
		ClientSecret: "some-client-secret",
		RedirectURL:  "https://app.postflow.io/oauth/callback",
	}, states, service.NewIdentityService(db), provider)
	assert.NilError(t, exchange.Init())

	router := gin.New()

	callbackController := controller.NewCallbackController(controller.CallbackControllerConfig{}, &router.RouterGroup, exchange)
	assert.NilError(t, callbackController.Init())
	callbackController.SetupRoutes()

	return &callbackApp{
		router: router,
		states: states,
	}
}

func (app *callbackApp) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest("GET", path, nil)
	assert.NilError(t, err)

	recorder := httptest.NewRecorder()
	app.router.ServeHTTP(recorder, req)

	return recorder
}

func TestCallbackProviderError(t *testing.T) {
	app := newCallbackApp(t)

	recorder := app.get(t, "/oauth/callback?error=access_denied&error_description=User+cancelled")

	assert.Equal(t, recorder.Code, http.StatusOK)
	assert.Assert(t, strings.Contains(recorder.Header().Get("Content-Type"), "text/html"))

	body := recorder.Body.String()
	assert.Assert(t, strings.Contains(body, "Something went wrong"))
	assert.Assert(t, strings.Contains(body, "User cancelled"))
}

func TestCallbackMissingParams(t *testing.T) {
	app := newCallbackApp(t)

	recorder := app.get(t, "/oauth/callback")

	assert.Equal(t, recorder.Code, http.StatusOK)
	assert.Assert(t, strings.Contains(recorder.Body.String(), "Missing authorization parameters"))
}

func TestCallbackSuccess(t *testing.T) {
	app := newCallbackApp(t)

	err := app.states.Create(context.Background(), &model.OAuthState{
		State:        "state-cb",
		CodeVerifier: "test-verifier",
		Provider:     "twitter",
		UserID:       "u1",
	})
	assert.NilError(t, err)

	recorder := app.get(t, "/oauth/callback?code=anycode&state=state-cb")

	assert.Equal(t, recorder.Code, http.StatusOK)

	body := recorder.Body.String()
	assert.Assert(t, strings.Contains(body, "Account connected"))
	assert.Assert(t, strings.Contains(body, "alice"))
	assert.Assert(t, strings.Contains(body, "X_AUTH_SUCCESS"))
}

func TestCallbackUnknownState(t *testing.T) {
	app := newCallbackApp(t)

	recorder := app.get(t, "/oauth/callback?code=anycode&state=never-issued")

	assert.Equal(t, recorder.Code, http.StatusOK)
	assert.Assert(t, strings.Contains(recorder.Body.String(), "Authentication failed"))
}
