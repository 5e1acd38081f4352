package gateways

import (
	"fmt"
	"sync"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
)

// Registry maps providers to their gateway and optional webhook authenticator.
type Registry struct {
	mu             sync.RWMutex
	gateways       map[enums.PaymentProvider]Gateway
	authenticators map[enums.PaymentProvider]WebhookAuthenticator
}

func NewRegistry() *Registry {
	return &Registry{
		gateways:       map[enums.PaymentProvider]Gateway{},
		authenticators: map[enums.PaymentProvider]WebhookAuthenticator{},
	}
}

// Register adds a gateway; registering the same provider twice is an error.
func (r *Registry) Register(gw Gateway) error {
	if gw == nil {
		return fmt.Errorf("gateway is required")
	}
	provider := gw.Provider()
	if !provider.IsValid() {
		return fmt.Errorf("unknown provider %q", provider)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.gateways[provider]; exists {
		return fmt.Errorf("gateway %s already registered", provider)
	}
	r.gateways[provider] = gw
	return nil
}

// RegisterAuthenticator adds the webhook authenticator for a provider.
func (r *Registry) RegisterAuthenticator(provider enums.PaymentProvider, auth WebhookAuthenticator) error {
	if auth == nil {
		return fmt.Errorf("authenticator is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.authenticators[provider]; exists {
		return fmt.Errorf("authenticator %s already registered", provider)
	}
	r.authenticators[provider] = auth
	return nil
}

// Gateway returns the adapter for provider or an UNSUPPORTED_PROVIDER error.
func (r *Registry) Gateway(provider enums.PaymentProvider) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gw, ok := r.gateways[provider]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeUnsupportedProvider, "provider %q is not configured", provider)
	}
	return gw, nil
}

// Authenticator returns the webhook authenticator for provider, if any.
func (r *Registry) Authenticator(provider enums.PaymentProvider) (WebhookAuthenticator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	auth, ok := r.authenticators[provider]
	return auth, ok
}

// Providers lists the providers with a registered gateway.
func (r *Registry) Providers() []enums.PaymentProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]enums.PaymentProvider, 0, len(r.gateways))
	for p := range r.gateways {
		out = append(out, p)
	}
	return out
}
