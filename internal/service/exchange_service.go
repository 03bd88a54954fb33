package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/postflowhq/postflow/internal/model"
	"github.com/postflowhq/postflow/internal/providers"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

type ExchangeServiceConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Timeout bounds each provider round-trip so a stalled upstream surfaces
	// as an error instead of hanging the request.
	Timeout time.Duration
}

// ExchangeService completes an authorization attempt: it consumes the stored
// state, exchanges the code for tokens, fetches the provider identity and
// persists the linked account.
type ExchangeService struct {
	config     ExchangeServiceConfig
	states     *StateService
	identities *IdentityService
	provider   providers.Provider
}

type ExchangeRequest struct {
	Code  string
	State string
}

type ExchangeResult struct {
	Username        string
	UserID          string
	Action          string
	ProfileImageURL string
}

func NewExchangeService(config ExchangeServiceConfig, states *StateService, identities *IdentityService, provider providers.Provider) *ExchangeService {
	return &ExchangeService{
		config:     config,
		states:     states,
		identities: identities,
		provider:   provider,
	}
}

func (es *ExchangeService) Init() error {
	if es.config.Timeout == 0 {
		es.config.Timeout = 10 * time.Second
	}

	return nil
}

func (es *ExchangeService) Exchange(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error) {
	if req.Code == "" || req.State == "" {
		return nil, &ValidationError{Message: "Code and state are required"}
	}

	// The claim is the consumption point: whatever happens past here, this
	// state (and with it the code's verifier) can never be replayed.
	row, err := es.states.Claim(ctx, req.State, es.provider.Name())

	if err != nil {
		return nil, err
	}

	token, err := es.exchangeCode(ctx, req.Code, row.CodeVerifier)

	if err != nil {
		return nil, err
	}

	identity, err := es.provider.Identity(ctx, token.AccessToken)

	if err != nil {
		// Tokens are discarded with the error; an identity-less credential
		// must not be persisted.
		return nil, &IdentityFetchError{Err: err}
	}

	action := "link"

	if row.IsLogin {
		action = "login"
	}

	// In a pure login flow there is no user to attach the identity to yet;
	// session establishment is the caller's concern.
	if !row.IsLogin || row.UserID != "" {
		linked := &model.LinkedIdentity{
			UserID:           row.UserID,
			Provider:         es.provider.Name(),
			ProviderUserID:   identity.ID,
			ProviderUsername: identity.Username,
			ProfileImageURL:  identity.ProfileImageURL,
			AccessToken:      token.AccessToken,
			RefreshToken:     token.RefreshToken,
		}

		if !token.Expiry.IsZero() {
			linked.ExpiresAt = token.Expiry.Unix()
		}

		if err := es.identities.Upsert(ctx, linked); err != nil {
			return nil, err
		}
	}

	log.Info().Str("username", identity.Username).Str("action", action).Msg("Completed authorization")

	return &ExchangeResult{
		Username:        identity.Username,
		UserID:          identity.ID,
		Action:          action,
		ProfileImageURL: identity.ProfileImageURL,
	}, nil
}

// RecentStates reports how many unconsumed states exist, for diagnostics on
// invalid-state responses.
func (es *ExchangeService) RecentStates(ctx context.Context) int64 {
	count, err := es.states.CountRecent(ctx)

	if err != nil {
		log.Error().Err(err).Msg("Failed to count recent oauth states")
		return 0
	}

	return count
}

func (es *ExchangeService) exchangeCode(ctx context.Context, code string, verifier string) (*oauth2.Token, error) {
	oauthConfig := oauth2.Config{
		ClientID:     es.config.ClientID,
		ClientSecret: es.config.ClientSecret,
		RedirectURL:  es.config.RedirectURL,
		Scopes:       es.provider.Scopes(),
		Endpoint:     es.provider.Endpoint(),
	}

	httpClient := &http.Client{
		Timeout: es.config.Timeout,
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, es.config.Timeout)
	defer cancel()

	exchangeCtx = context.WithValue(exchangeCtx, oauth2.HTTPClient, httpClient)

	token, err := oauthConfig.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))

	if err != nil {
		var retrieveErr *oauth2.RetrieveError

		if errors.As(err, &retrieveErr) {
			return nil, &UpstreamExchangeError{Body: string(retrieveErr.Body), Err: err}
		}

		return nil, &UpstreamExchangeError{Body: err.Error(), Err: err}
	}

	return token, nil
}
