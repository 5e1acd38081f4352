package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/config"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/dbtest"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
)

func TestNewPaymentsWiresPaystack(t *testing.T) {
	cfg := &config.Config{
		Paystack:      config.PaystackConfig{SecretKey: "sk_test_123", BaseURL: "https://api.paystack.co"},
		Collaborators: config.CollaboratorsConfig{DonationsURL: "http://donations.internal"},
	}
	p, err := NewPayments(context.Background(), Params{
		Config: cfg,
		Logger: logger.Nop(),
		DB:     db.NewFromGorm(dbtest.Open(t)),
	})
	require.NoError(t, err)

	assert.Equal(t, []enums.PaymentProvider{enums.PaymentProviderPaystack}, p.Gateways.Providers())
	_, ok := p.Gateways.Authenticator(enums.PaymentProviderPaystack)
	assert.True(t, ok)
	_, ok = p.Gateways.Authenticator(enums.PaymentProviderSquare)
	assert.False(t, ok)
	assert.NotNil(t, p.Webhooks)
	assert.NotNil(t, p.Engine)
}

func TestNewPaymentsWithoutProvidersRejectsIntents(t *testing.T) {
	p, err := NewPayments(context.Background(), Params{
		Config: &config.Config{},
		Logger: logger.Nop(),
		DB:     db.NewFromGorm(dbtest.Open(t)),
	})
	require.NoError(t, err)

	_, err = p.Gateways.Gateway(enums.PaymentProviderPaystack)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnsupportedProvider))
}
