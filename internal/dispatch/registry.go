package dispatch

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
)

// SyncRequest carries everything a context handler needs to create or find
// the business record for a successful payment.
type SyncRequest struct {
	IntentID         uuid.UUID
	IntentCode       string
	UserID           *uuid.UUID
	Email            string
	Reference        string
	Amount           decimal.Decimal
	Currency         enums.Currency
	Context          enums.PaymentContext
	ContextData      json.RawMessage
	ProviderResponse json.RawMessage
}

// SyncResult names the business record the handler created or found.
type SyncResult struct {
	EntityID string
}

// Handler turns a successful intent into its business record. Implementations
// must be idempotent on IntentCode.
type Handler interface {
	Sync(ctx context.Context, req SyncRequest) (SyncResult, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req SyncRequest) (SyncResult, error)

func (f HandlerFunc) Sync(ctx context.Context, req SyncRequest) (SyncResult, error) {
	return f(ctx, req)
}

// Registry maps payment contexts to their handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[enums.PaymentContext]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[enums.PaymentContext]Handler{}}
}

func (r *Registry) Register(ctx enums.PaymentContext, h Handler) error {
	if !ctx.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment context")
	}
	if h == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "dispatch handler required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[ctx] = h
	return nil
}

func (r *Registry) Handler(ctx enums.PaymentContext) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[ctx]
	return h, ok
}

// Contexts lists the registered contexts in a stable order.
func (r *Registry) Contexts() []enums.PaymentContext {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]enums.PaymentContext, 0, len(r.handlers))
	for c := range r.handlers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
