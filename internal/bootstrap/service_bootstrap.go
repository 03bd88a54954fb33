package bootstrap

import (
	"time"

	"github.com/postflowhq/postflow/internal/providers"
	"github.com/postflowhq/postflow/internal/service"
	"github.com/postflowhq/postflow/internal/utils"
)

type Services struct {
	databaseService  *service.DatabaseService
	stateService     *service.StateService
	identityService  *service.IdentityService
	authorizeService *service.AuthorizeService
	exchangeService  *service.ExchangeService
	sessionService   *service.SessionService
	metricsService   *service.MetricsService
}

func (app *BootstrapApp) initServices(provider providers.Provider) (Services, error) {
	services := Services{}

	databaseService := service.NewDatabaseService(service.DatabaseServiceConfig{
		DatabasePath: app.config.DatabasePath,
	})

	if err := databaseService.Init(); err != nil {
		return Services{}, err
	}

	services.databaseService = databaseService

	stateService := service.NewStateService(service.StateServiceConfig{
		TTL: time.Duration(app.config.StateTTL) * time.Second,
	}, databaseService.GetDatabase())

	if err := stateService.Init(); err != nil {
		return Services{}, err
	}

	services.stateService = stateService

	identityService := service.NewIdentityService(databaseService.GetDatabase())
	services.identityService = identityService

	clientSecret := utils.GetSecret(app.config.TwitterClientSecret, app.config.TwitterClientSecretFile)

	authorizeService := service.NewAuthorizeService(service.AuthorizeServiceConfig{
		ClientID:     app.config.TwitterClientID,
		ClientSecret: clientSecret,
		RedirectURL:  app.redirectURL(),
	}, stateService, provider)

	if err := authorizeService.Init(); err != nil {
		return Services{}, err
	}

	services.authorizeService = authorizeService

	exchangeService := service.NewExchangeService(service.ExchangeServiceConfig{
		ClientID:     app.config.TwitterClientID,
		ClientSecret: clientSecret,
		RedirectURL:  app.redirectURL(),
	}, stateService, identityService, provider)

	if err := exchangeService.Init(); err != nil {
		return Services{}, err
	}

	services.exchangeService = exchangeService

	sessionService := service.NewSessionService(service.SessionServiceConfig{
		Secret: app.config.SessionSecret,
		Expiry: time.Duration(app.config.SessionExpiry) * time.Second,
	})

	if err := sessionService.Init(); err != nil {
		return Services{}, err
	}

	services.sessionService = sessionService

	metricsService := service.NewMetricsService()

	if err := metricsService.Init(); err != nil {
		return Services{}, err
	}

	services.metricsService = metricsService

	return services, nil
}
