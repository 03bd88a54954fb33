package service

import (
	"context"
	"time"

	"github.com/postflowhq/postflow/internal/model"
	"github.com/postflowhq/postflow/internal/providers"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

type AuthorizeServiceConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// AuthorizeService starts an authorization attempt: it mints the state and
// PKCE verifier, persists them and builds the provider authorization URL.
type AuthorizeService struct {
	config   AuthorizeServiceConfig
	states   *StateService
	provider providers.Provider
}

type AuthorizeRequest struct {
	UserID  string
	IsLogin bool
	Origin  string
}

type AuthorizeResult struct {
	AuthURL string
	State   string
}

func NewAuthorizeService(config AuthorizeServiceConfig, states *StateService, provider providers.Provider) *AuthorizeService {
	return &AuthorizeService{
		config:   config,
		states:   states,
		provider: provider,
	}
}

func (as *AuthorizeService) Init() error {
	return nil
}

func (as *AuthorizeService) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	if as.config.ClientID == "" {
		return nil, &ConfigurationError{Setting: "twitter-client-id"}
	}

	if as.config.ClientSecret == "" {
		return nil, &ConfigurationError{Setting: "twitter-client-secret"}
	}

	if as.config.RedirectURL == "" {
		return nil, &ConfigurationError{Setting: "twitter-redirect-url"}
	}

	if !req.IsLogin && req.UserID == "" {
		return nil, &ValidationError{Message: "User ID is required for authorization"}
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	row := &model.OAuthState{
		State:        state,
		CodeVerifier: verifier,
		Provider:     as.provider.Name(),
		UserID:       req.UserID,
		IsLogin:      req.IsLogin,
	}

	if err := as.states.Create(ctx, row); err != nil {
		return nil, err
	}

	// Read the row back before handing out a URL that references it. A state
	// the exchange cannot find later is worse than failing the call now.
	readBack := func() (*model.OAuthState, error) {
		return as.states.Get(ctx, state)
	}

	_, err := backoff.Retry(ctx, readBack,
		backoff.WithBackOff(backoff.NewConstantBackOff(50*time.Millisecond)),
		backoff.WithMaxTries(3))

	if err != nil {
		if deleteErr := as.states.Delete(ctx, state); deleteErr != nil {
			log.Error().Err(deleteErr).Msg("Failed to remove unverified oauth state")
		}
		return nil, &PersistenceError{Op: "verify oauth state", Err: err}
	}

	oauthConfig := as.oauthConfig()
	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	log.Debug().Str("state", state).Bool("isLogin", req.IsLogin).Msg("Created authorization URL")

	return &AuthorizeResult{
		AuthURL: authURL,
		State:   state,
	}, nil
}

func (as *AuthorizeService) oauthConfig() oauth2.Config {
	return oauth2.Config{
		ClientID:     as.config.ClientID,
		ClientSecret: as.config.ClientSecret,
		RedirectURL:  as.config.RedirectURL,
		Scopes:       as.provider.Scopes(),
		Endpoint:     as.provider.Endpoint(),
	}
}
