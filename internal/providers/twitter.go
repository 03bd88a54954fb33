package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/postflowhq/postflow/internal/config"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

type TwitterProviderConfig struct {
	// Endpoint overrides, used by tests. Empty means the real X API.
	AuthURL     string
	TokenURL    string
	UserinfoURL string

	// FallbackBearer is tried once when the identity lookup fails with the
	// freshly exchanged token.
	FallbackBearer string

	Timeout time.Duration
}

type TwitterProvider struct {
	config TwitterProviderConfig
	client *http.Client
}

func NewTwitterProvider(providerConfig TwitterProviderConfig) *TwitterProvider {
	if providerConfig.AuthURL == "" {
		providerConfig.AuthURL = config.TwitterAuthURL
	}

	if providerConfig.TokenURL == "" {
		providerConfig.TokenURL = config.TwitterTokenURL
	}

	if providerConfig.UserinfoURL == "" {
		providerConfig.UserinfoURL = config.TwitterUserinfoURL
	}

	if providerConfig.Timeout == 0 {
		providerConfig.Timeout = 10 * time.Second
	}

	return &TwitterProvider{
		config: providerConfig,
		client: &http.Client{
			Timeout: providerConfig.Timeout,
		},
	}
}

func (tp *TwitterProvider) Name() string {
	return "twitter"
}

func (tp *TwitterProvider) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   tp.config.AuthURL,
		TokenURL:  tp.config.TokenURL,
		AuthStyle: oauth2.AuthStyleInHeader,
	}
}

func (tp *TwitterProvider) Scopes() []string {
	return []string{"tweet.read", "tweet.write", "users.read", "offline.access"}
}

// twitterUserResponse is the v2 /users/me envelope.
type twitterUserResponse struct {
	Data struct {
		ID              string `json:"id"`
		Username        string `json:"username"`
		ProfileImageURL string `json:"profile_image_url"`
	} `json:"data"`
}

// Identity fetches the authenticated user. A failure with the fresh access
// token is retried once with the configured fallback bearer before giving up.
func (tp *TwitterProvider) Identity(ctx context.Context, accessToken string) (Identity, error) {
	identity, err := tp.fetchIdentity(ctx, accessToken)

	if err == nil {
		return identity, nil
	}

	if tp.config.FallbackBearer == "" {
		return Identity{}, err
	}

	log.Warn().Err(err).Msg("Identity lookup failed with exchanged token, retrying with fallback bearer")
	return tp.fetchIdentity(ctx, tp.config.FallbackBearer)
}

func (tp *TwitterProvider) fetchIdentity(ctx context.Context, bearer string) (Identity, error) {
	endpoint, err := url.Parse(tp.config.UserinfoURL)

	if err != nil {
		return Identity{}, fmt.Errorf("invalid userinfo URL: %w", err)
	}

	query := endpoint.Query()
	query.Set("user.fields", "profile_image_url")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)

	if err != nil {
		return Identity{}, fmt.Errorf("failed to create userinfo request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+bearer)

	res, err := tp.client.Do(req)

	if err != nil {
		return Identity{}, fmt.Errorf("userinfo request failed: %w", err)
	}

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)

	if err != nil {
		return Identity{}, fmt.Errorf("failed to read userinfo response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Identity{}, fmt.Errorf("userinfo request failed with status %d: %s", res.StatusCode, string(body))
	}

	var user twitterUserResponse

	if err := json.Unmarshal(body, &user); err != nil {
		return Identity{}, fmt.Errorf("failed to parse userinfo response: %w", err)
	}

	if user.Data.ID == "" || user.Data.Username == "" {
		return Identity{}, errors.New("userinfo response missing id or username")
	}

	return Identity{
		ID:              user.Data.ID,
		Username:        user.Data.Username,
		ProfileImageURL: user.Data.ProfileImageURL,
	}, nil
}
