package providers

import (
	"context"

	"golang.org/x/oauth2"
)

// Identity is the validated shape of a provider's "me" response. Raw provider
// JSON never travels past this package.
type Identity struct {
	ID              string
	Username        string
	ProfileImageURL string
}

// Provider describes an external OAuth2 identity provider.
type Provider interface {
	Name() string
	Endpoint() oauth2.Endpoint
	Scopes() []string
	Identity(ctx context.Context, accessToken string) (Identity, error)
}

// Registry holds the configured providers keyed by name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

func (r *Registry) Register(provider Provider) {
	r.providers[provider.Name()] = provider
}

func (r *Registry) Get(name string) (Provider, bool) {
	provider, exists := r.providers[name]
	return provider, exists
}
