package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Dickson-Hardy/cmda-backend-sub000/api/responses"
	webhooksvc "github.com/Dickson-Hardy/cmda-backend-sub000/internal/webhooks"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/types"
)

const defaultMaxBody int64 = 1 << 20

type deliveryHandler interface {
	Handle(ctx context.Context, provider string, payload []byte, headers http.Header) (webhooksvc.Delivery, error)
}

// ProviderWebhook receives POST /webhooks/{provider}. The body is read once
// and the exact bytes are handed to the provider's signature check.
func ProviderWebhook(svc deliveryHandler, maxBody int64, logg *logger.Logger) http.HandlerFunc {
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload too large"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		delivery, err := svc.Handle(ctx, chi.URLParam(r, "provider"), payload, r.Header)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"event_id": delivery.EventID,
				"outcome":  delivery.Outcome.String(),
			}), "webhook acknowledged")
		}
		responses.WriteSuccess(w, types.Ack{Success: true})
	}
}
