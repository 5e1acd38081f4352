// Package dbtest opens isolated in-memory SQLite databases carrying the
// payment schema for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const PaymentIntentsDDL = `
CREATE TABLE IF NOT EXISTS payment_intents (
  id TEXT PRIMARY KEY,
  intent_code TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL,
  user_id TEXT,
  amount TEXT NOT NULL,
  currency TEXT NOT NULL,
  provider TEXT NOT NULL,
  context TEXT NOT NULL,
  context_data TEXT,
  context_entity TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  checkout_url TEXT,
  channel TEXT,
  provider_reference TEXT UNIQUE,
  provider_response TEXT,
  dispatch_token TEXT,
  dispatch_claimed_at DATETIME,
  last_synced_at DATETIME,
  expires_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`

const WebhookEventsDDL = `
CREATE TABLE IF NOT EXISTS payment_webhook_events (
  id TEXT PRIMARY KEY,
  provider TEXT NOT NULL,
  event_id TEXT,
  event_type TEXT,
  reference TEXT,
  intent_id TEXT,
  signature_valid INTEGER NOT NULL DEFAULT 0,
  outcome TEXT NOT NULL,
  error TEXT,
  payload_hash TEXT NOT NULL,
  payload TEXT,
  received_at DATETIME NOT NULL
);`

const OutboxDDL = `
CREATE TABLE IF NOT EXISTS payment_outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`

const OutboxDLQDDL = `
CREATE TABLE IF NOT EXISTS payment_outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME NOT NULL
);`

// Open returns a private in-memory database with the given DDL applied. With
// no DDL the full payment schema is created. The pool is pinned to a single
// connection so concurrent callers serialize like row locks would.
func Open(t *testing.T, ddl ...string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(ddl) == 0 {
		ddl = []string{PaymentIntentsDDL, WebhookEventsDDL, OutboxDDL, OutboxDLQDDL}
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply ddl: %v", err)
		}
	}
	return db
}
