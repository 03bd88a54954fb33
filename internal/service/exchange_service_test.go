package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/postflowhq/postflow/internal/model"
	"github.com/postflowhq/postflow/internal/providers"
	"github.com/postflowhq/postflow/internal/service"

	"gotest.tools/v3/assert"
)

type stubProvider struct {
	server *httptest.Server

	// tokenStatus != 0 makes the token endpoint fail with that status.
	tokenStatus int
	tokenError  string

	// validBearers lists the bearer tokens the identity endpoint accepts.
	validBearers []string

	lastVerifier string
}

func newStubProvider(t *testing.T) *stubProvider {
	t.Helper()

	stub := &stubProvider{
		validBearers: []string{"access-token-1"},
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NilError(t, r.ParseForm())
		assert.Equal(t, r.Form.Get("grant_type"), "authorization_code")

		stub.lastVerifier = r.Form.Get("code_verifier")

		if stub.tokenStatus != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(stub.tokenStatus)
			fmt.Fprint(w, stub.tokenError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"access-token-1","token_type":"Bearer","refresh_token":"refresh-token-1","expires_in":7200}`)
	})

	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		for _, valid := range stub.validBearers {
			if bearer == valid {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"data":{"id":"42","username":"alice","profile_image_url":"https://img.example.com/alice.png"}}`)
				return
			}
		}

		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"title":"Unauthorized"}`)
	})

	stub.server = httptest.NewServer(mux)
	t.Cleanup(stub.server.Close)

	return stub
}

func (s *stubProvider) provider(fallbackBearer string) *providers.TwitterProvider {
	return providers.NewTwitterProvider(providers.TwitterProviderConfig{
		AuthURL:        s.server.URL + "/authorize",
		TokenURL:       s.server.URL + "/token",
		UserinfoURL:    s.server.URL + "/me",
		FallbackBearer: fallbackBearer,
	})
}

func newTestExchangeService(t *testing.T, states *service.StateService, identities *service.IdentityService, provider providers.Provider) *service.ExchangeService {
	t.Helper()

	exchange := service.NewExchangeService(service.ExchangeServiceConfig{
		ClientID:     "some-client-id",
		ClientSecret: "some-client-secret",
		RedirectURL:  "https://app.postflow.io/oauth/callback",
	}, states, identities, provider)

	err := exchange.Init()
	assert.NilError(t, err)

	return exchange
}

func TestExchangeRequiresCodeAndState(t *testing.T) {
	stub := newStubProvider(t)
	exchange := newTestExchangeService(t, nil, nil, stub.provider(""))

	var validationErr *service.ValidationError

	_, err := exchange.Exchange(context.Background(), service.ExchangeRequest{Code: "x"})
	assert.Assert(t, errors.As(err, &validationErr))

	_, err = exchange.Exchange(context.Background(), service.ExchangeRequest{State: "y"})
	assert.Assert(t, errors.As(err, &validationErr))
}

func TestExchangeHappyPath(t *testing.T) {
	db := newTestDB(t)
	states := newTestStateService(t, db)
	identities := service.NewIdentityService(db)
	stub := newStubProvider(t)
	exchange := newTestExchangeService(t, states, identities, stub.provider(""))
	ctx := context.Background()

	err := states.Create(ctx, &model.OAuthState{
		State:        "state-1",
		CodeVerifier: "test-verifier",
		Provider:     "twitter",
		UserID:       "u1",
	})
	assert.NilError(t, err)

	result, err := exchange.Exchange(ctx, service.ExchangeRequest{
		Code:  "anycode",
		State: "state-1",
	})
	assert.NilError(t, err)

	assert.Equal(t, result.Username, "alice")
	assert.Equal(t, result.UserID, "42")
	assert.Equal(t, result.Action, "link")
	assert.Equal(t, stub.lastVerifier, "test-verifier")

	// The linked identity was persisted with the tokens.
	identity, err := identities.GetByUserAndProvider(ctx, "u1", "twitter")
	assert.NilError(t, err)
	assert.Assert(t, identity != nil)
	assert.Equal(t, identity.ProviderUsername, "alice")
	assert.Equal(t, identity.AccessToken, "access-token-1")
	assert.Equal(t, identity.RefreshToken, "refresh-token-1")

	// The state is gone: replaying the same exchange must fail.
	_, err = exchange.Exchange(ctx, service.ExchangeRequest{
		Code:  "anycode",
		State: "state-1",
	})
	assert.ErrorIs(t, err, service.ErrStateNotFound)
}

func TestExchangeLoginSkipsUpsert(t *testing.T) {
	db := newTestDB(t)
	states := newTestStateService(t, db)
	identities := service.NewIdentityService(db)
	stub := newStubProvider(t)
	exchange := newTestExchangeService(t, states, identities, stub.provider(""))
	ctx := context.Background()

	err := states.Create(ctx, &model.OAuthState{
		State:        "state-login",
		CodeVerifier: "test-verifier",
		Provider:     "twitter",
		IsLogin:      true,
	})
	assert.NilError(t, err)

	result, err := exchange.Exchange(ctx, service.ExchangeRequest{
		Code:  "anycode",
		State: "state-login",
	})
	assert.NilError(t, err)
	assert.Equal(t, result.Action, "login")

	var count int64
	err = db.Model(&model.LinkedIdentity{}).Count(&count).Error
	assert.NilError(t, err)
	assert.Equal(t, count, int64(0))
}

func TestExchangeSurfacesProviderError(t *testing.T) {
	db := newTestDB(t)
	states := newTestStateService(t, db)
	identities := service.NewIdentityService(db)
	stub := newStubProvider(t)
	stub.tokenStatus = http.StatusBadRequest
	stub.tokenError = `{"error":"invalid_grant","error_description":"Code expired"}`
	exchange := newTestExchangeService(t, states, identities, stub.provider(""))
	ctx := context.Background()

	err := states.Create(ctx, &model.OAuthState{
		State:        "state-err",
		CodeVerifier: "test-verifier",
		Provider:     "twitter",
		UserID:       "u1",
	})
	assert.NilError(t, err)

	_, err = exchange.Exchange(ctx, service.ExchangeRequest{
		Code:  "expired-code",
		State: "state-err",
	})

	var upstreamErr *service.UpstreamExchangeError
	assert.Assert(t, errors.As(err, &upstreamErr))
	assert.Assert(t, strings.Contains(upstreamErr.Body, "invalid_grant"))

	// Failure past the claim still consumed the state.
	_, err = exchange.Exchange(ctx, service.ExchangeRequest{
		Code:  "expired-code",
		State: "state-err",
	})
	assert.ErrorIs(t, err, service.ErrStateNotFound)
}

func TestExchangeIdentityFallbackBearer(t *testing.T) {
	db := newTestDB(t)
	states := newTestStateService(t, db)
	identities := service.NewIdentityService(db)
	stub := newStubProvider(t)
	// The fresh access token is rejected, only the fallback works.
	stub.validBearers = []string{"fallback-bearer"}
	exchange := newTestExchangeService(t, states, identities, stub.provider("fallback-bearer"))
	ctx := context.Background()

	err := states.Create(ctx, &model.OAuthState{
		State:        "state-fb",
		CodeVerifier: "test-verifier",
		Provider:     "twitter",
		UserID:       "u1",
	})
	assert.NilError(t, err)

	result, err := exchange.Exchange(ctx, service.ExchangeRequest{
		Code:  "anycode",
		State: "state-fb",
	})
	assert.NilError(t, err)
	assert.Equal(t, result.Username, "alice")
}

func TestExchangeIdentityFailureDiscardsTokens(t *testing.T) {
	db := newTestDB(t)
	states := newTestStateService(t, db)
	identities := service.NewIdentityService(db)
	stub := newStubProvider(t)
	stub.validBearers = nil
	exchange := newTestExchangeService(t, states, identities, stub.provider(""))
	ctx := context.Background()

	err := states.Create(ctx, &model.OAuthState{
		State:        "state-idf",
		CodeVerifier: "test-verifier",
		Provider:     "twitter",
		UserID:       "u1",
	})
	assert.NilError(t, err)

	_, err = exchange.Exchange(ctx, service.ExchangeRequest{
		Code:  "anycode",
		State: "state-idf",
	})

	var identityErr *service.IdentityFetchError
	assert.Assert(t, errors.As(err, &identityErr))

	// No identity-less credential was persisted.
	var count int64
	err = db.Model(&model.LinkedIdentity{}).Count(&count).Error
	assert.NilError(t, err)
	assert.Equal(t, count, int64(0))
}
