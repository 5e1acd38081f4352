package cron

import (
	"context"

	"gorm.io/gorm"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}
