package service_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/postflowhq/postflow/internal/providers"
	"github.com/postflowhq/postflow/internal/service"

	"golang.org/x/oauth2"
	"gotest.tools/v3/assert"
)

var authorizeConfig = service.AuthorizeServiceConfig{
	ClientID:     "some-client-id",
	ClientSecret: "some-client-secret",
	RedirectURL:  "https://app.postflow.io/oauth/callback",
}

func newTestAuthorizeService(t *testing.T, config service.AuthorizeServiceConfig) *service.AuthorizeService {
	t.Helper()

	db := newTestDB(t)
	states := newTestStateService(t, db)
	provider := providers.NewTwitterProvider(providers.TwitterProviderConfig{})

	authorize := service.NewAuthorizeService(config, states, provider)

	err := authorize.Init()
	assert.NilError(t, err)

	return authorize
}

func TestAuthorizeRequiresUserIDForLink(t *testing.T) {
	authorize := newTestAuthorizeService(t, authorizeConfig)

	_, err := authorize.Authorize(context.Background(), service.AuthorizeRequest{
		IsLogin: false,
	})

	var validationErr *service.ValidationError
	assert.Assert(t, errors.As(err, &validationErr))
	assert.Equal(t, validationErr.Message, "User ID is required for authorization")
}

func TestAuthorizeRequiresConfiguration(t *testing.T) {
	authorize := newTestAuthorizeService(t, service.AuthorizeServiceConfig{})

	_, err := authorize.Authorize(context.Background(), service.AuthorizeRequest{
		UserID: "u1",
	})

	var configErr *service.ConfigurationError
	assert.Assert(t, errors.As(err, &configErr))
	assert.Equal(t, configErr.Setting, "twitter-client-id")
}

func TestAuthorizeBuildsURLWithState(t *testing.T) {
	authorize := newTestAuthorizeService(t, authorizeConfig)

	result, err := authorize.Authorize(context.Background(), service.AuthorizeRequest{
		UserID: "u1",
	})
	assert.NilError(t, err)

	parsed, err := url.Parse(result.AuthURL)
	assert.NilError(t, err)

	query := parsed.Query()
	assert.Equal(t, query.Get("state"), result.State)
	assert.Equal(t, query.Get("response_type"), "code")
	assert.Equal(t, query.Get("client_id"), "some-client-id")
	assert.Equal(t, query.Get("redirect_uri"), "https://app.postflow.io/oauth/callback")
	assert.Equal(t, query.Get("code_challenge_method"), "S256")
	assert.Assert(t, query.Get("code_challenge") != "")
	assert.Assert(t, query.Get("scope") != "")
}

func TestAuthorizeLoginWithoutUser(t *testing.T) {
	authorize := newTestAuthorizeService(t, authorizeConfig)

	result, err := authorize.Authorize(context.Background(), service.AuthorizeRequest{
		IsLogin: true,
	})
	assert.NilError(t, err)
	assert.Assert(t, result.State != "")
}

func TestAuthorizeStatesAreUnique(t *testing.T) {
	authorize := newTestAuthorizeService(t, authorizeConfig)

	seen := make(map[string]bool)

	for range 50 {
		result, err := authorize.Authorize(context.Background(), service.AuthorizeRequest{
			UserID: "u1",
		})
		assert.NilError(t, err)
		assert.Assert(t, !seen[result.State], "state %s produced twice", result.State)
		seen[result.State] = true
	}
}

// RFC 7636 appendix B vector, pinning the challenge transform the
// authorization URL is built with.
func TestS256ChallengeVector(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), want)
}
