package bootstrap

import (
	"fmt"
	"strings"

	"github.com/postflowhq/postflow/internal/config"
	"github.com/postflowhq/postflow/internal/providers"
	"github.com/postflowhq/postflow/internal/utils"

	"github.com/rs/zerolog/log"
)

type BootstrapApp struct {
	config   config.Config
	services Services
}

func NewBootstrapApp(config config.Config) *BootstrapApp {
	return &BootstrapApp{
		config: config,
	}
}

func (app *BootstrapApp) Setup() error {
	if app.config.TwitterClientID == "" {
		return fmt.Errorf("no twitter client id configured")
	}

	if utils.GetSecret(app.config.TwitterClientSecret, app.config.TwitterClientSecretFile) == "" {
		return fmt.Errorf("no twitter client secret configured")
	}

	registry := providers.NewRegistry()
	registry.Register(providers.NewTwitterProvider(providers.TwitterProviderConfig{
		FallbackBearer: app.config.TwitterFallbackBearer,
	}))

	provider, ok := registry.Get("twitter")

	if !ok {
		return fmt.Errorf("twitter provider not registered")
	}

	log.Trace().Interface("config", app.config).Msg("Config dump")

	services, err := app.initServices(provider)

	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	app.services = services

	router, err := app.setupRouter()

	if err != nil {
		return fmt.Errorf("failed to setup routes: %w", err)
	}

	address := fmt.Sprintf("%s:%d", app.config.Address, app.config.Port)
	log.Info().Msgf("Starting server on %s", address)

	if err := router.Run(address); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}

	return nil
}

// redirectURL is the registered OAuth2 callback. Defaults to the app's own
// callback page when not configured explicitly.
func (app *BootstrapApp) redirectURL() string {
	if app.config.TwitterRedirectURL != "" {
		return app.config.TwitterRedirectURL
	}

	return strings.TrimSuffix(app.config.AppURL, "/") + "/oauth/callback"
}
