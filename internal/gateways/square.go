package gateways

import (
	"context"
	"fmt"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/square"
)

type squareAPI interface {
	CreatePaymentLink(ctx context.Context, params square.PaymentLinkParams) (*square.PaymentLink, error)
}

// SquareGateway opens Square hosted checkouts. Verification is not wired yet
// and no webhook authenticator is registered for it.
type SquareGateway struct {
	client squareAPI
}

func NewSquareGateway(client squareAPI) (*SquareGateway, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "square client required")
	}
	return &SquareGateway{client: client}, nil
}

func (g *SquareGateway) Provider() enums.PaymentProvider {
	return enums.PaymentProviderSquare
}

func (g *SquareGateway) StartCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	link, err := g.client.CreatePaymentLink(ctx, square.PaymentLinkParams{
		Name:           fmt.Sprintf("CMDA %s %s", req.Context, req.IntentCode),
		AmountMinor:    req.AmountMinor,
		Currency:       req.Currency.String(),
		BuyerEmail:     req.Email,
		RedirectURL:    req.CallbackURL,
		PaymentNote:    req.IntentCode,
		IdempotencyKey: req.IntentCode,
	})
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{
		CheckoutURL: link.URL,
		Reference:   link.OrderID,
	}, nil
}

func (g *SquareGateway) SupportsVerification() bool { return false }

// TODO: verify through the Payments API once Square webhooks are authenticated.
func (g *SquareGateway) Verify(ctx context.Context, reference string) (*Verification, error) {
	return nil, ErrVerificationUnsupported
}
