package llm

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Client is the single completion abstraction every stage executor talks
// through. Implementations must return classified errors (see Classify) so
// the retry layer can decide what is transient.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Provider() Provider
}

// ErrMissingAPIKey is returned when a provider client has no credential.
var ErrMissingAPIKey = errors.New("missing provider api key")

// Registry resolves a Client per provider.
type Registry struct {
	clients map[Provider]Client
}

// NewRegistry builds a registry from the given clients.
func NewRegistry(clients ...Client) *Registry {
	registry := &Registry{clients: make(map[Provider]Client, len(clients))}
	for _, client := range clients {
		if client == nil {
			continue
		}
		registry.clients[client.Provider()] = client
	}
	return registry
}

// Client returns the client for a provider, or false if none is configured.
func (r *Registry) Client(provider Provider) (Client, bool) {
	if r == nil {
		return nil, false
	}
	client, ok := r.clients[provider]
	return client, ok
}

// Providers lists providers that have a configured client.
func (r *Registry) Providers() []Provider {
	if r == nil {
		return nil
	}
	providers := make([]Provider, 0, len(r.clients))
	for provider := range r.clients {
		providers = append(providers, provider)
	}
	return providers
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
