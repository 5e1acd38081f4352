package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Internal      InternalConfig
	FeatureFlags  FeatureFlagsConfig
	Paystack      PaystackConfig
	Square        SquareConfig
	Payments      PaymentsConfig
	Webhooks      WebhooksConfig
	Collaborators CollaboratorsConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CMDA_APP_ENV" required:"true"`
	Port         string `envconfig:"CMDA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CMDA_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"CMDA_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"CMDA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CMDA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CMDA_DB_DSN"`
	Driver string `envconfig:"CMDA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CMDA_DB_HOST"`
	LegacyPort     int    `envconfig:"CMDA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CMDA_DB_USER"`
	LegacyPassword string `envconfig:"CMDA_DB_PASSWORD"`
	LegacyName     string `envconfig:"CMDA_DB_NAME"`
	LegacySSLMode  string `envconfig:"CMDA_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"CMDA_SQLITE_PATH" default:"cmda-dev.db"`

	MaxOpenConns    int           `envconfig:"CMDA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CMDA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CMDA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CMDA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CMDA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CMDA_REDIS_ADDR"`
	Password     string        `envconfig:"CMDA_REDIS_PASSWORD"`
	DB           int           `envconfig:"CMDA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CMDA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CMDA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CMDA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CMDA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CMDA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the shared secret used to validate member access tokens.
// Tokens are minted by the membership service.
type JWTConfig struct {
	Secret string `envconfig:"CMDA_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"CMDA_JWT_ISSUER" required:"true"`
}

type InternalConfig struct {
	ServiceToken string `envconfig:"CMDA_INTERNAL_SERVICE_TOKEN" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CMDA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CMDA_AUTO_MIGRATE" default:"false"`
}

type PaystackConfig struct {
	SecretKey   string        `envconfig:"CMDA_PAYSTACK_SECRET_KEY"`
	BaseURL     string        `envconfig:"CMDA_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL string        `envconfig:"CMDA_PAYSTACK_CALLBACK_URL"`
	Channels    []string      `envconfig:"CMDA_PAYSTACK_CHANNELS" default:"card,bank,ussd,bank_transfer"`
	Timeout     time.Duration `envconfig:"CMDA_PAYSTACK_TIMEOUT" default:"15s"`
}

// Enabled reports whether Paystack credentials were provided.
func (p PaystackConfig) Enabled() bool {
	return strings.TrimSpace(p.SecretKey) != ""
}

type SquareConfig struct {
	AccessToken   string        `envconfig:"CMDA_SQUARE_ACCESS_TOKEN"`
	Env           string        `envconfig:"CMDA_SQUARE_ENV" default:"sandbox"`
	LocationID    string        `envconfig:"CMDA_SQUARE_LOCATION_ID"`
	RedirectURL   string        `envconfig:"CMDA_SQUARE_REDIRECT_URL"`
	Timeout       time.Duration `envconfig:"CMDA_SQUARE_TIMEOUT" default:"15s"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// Enabled reports whether Square credentials were provided.
func (s SquareConfig) Enabled() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

type PaymentsConfig struct {
	DefaultCurrency     string        `envconfig:"CMDA_PAYMENTS_DEFAULT_CURRENCY" default:"NGN"`
	IntentTTL           time.Duration `envconfig:"CMDA_PAYMENTS_INTENT_TTL" default:"24h"`
	RequeryConcurrency  int           `envconfig:"CMDA_PAYMENTS_REQUERY_CONCURRENCY" default:"4"`
	RequeryTimeout      time.Duration `envconfig:"CMDA_PAYMENTS_REQUERY_TIMEOUT" default:"20s"`
	RequeryEmailLimit   int           `envconfig:"CMDA_PAYMENTS_REQUERY_EMAIL_LIMIT" default:"50"`
	DispatchLease       time.Duration `envconfig:"CMDA_PAYMENTS_DISPATCH_LEASE" default:"2m"`
	StaleRequeryAge     time.Duration `envconfig:"CMDA_PAYMENTS_STALE_REQUERY_AGE" default:"15m"`
	StaleRequeryBatch   int           `envconfig:"CMDA_PAYMENTS_STALE_REQUERY_BATCH" default:"100"`
	AbandonSweepBatch   int           `envconfig:"CMDA_PAYMENTS_ABANDON_BATCH" default:"500"`
	SelfServiceMaxLimit int           `envconfig:"CMDA_PAYMENTS_SELF_SERVICE_MAX_LIMIT" default:"50"`
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"CMDA_WEBHOOKS_IDEMPOTENCY_TTL" default:"72h"`
	MaxBodyBytes   int64         `envconfig:"CMDA_WEBHOOKS_MAX_BODY_BYTES" default:"1048576"`
}

// CollaboratorsConfig points the dispatcher at the services that own the
// business records. An empty URL leaves that context unregistered.
type CollaboratorsConfig struct {
	DonationsURL     string        `envconfig:"CMDA_COLLABORATOR_DONATIONS_URL"`
	SubscriptionsURL string        `envconfig:"CMDA_COLLABORATOR_SUBSCRIPTIONS_URL"`
	OrdersURL        string        `envconfig:"CMDA_COLLABORATOR_ORDERS_URL"`
	EventsURL        string        `envconfig:"CMDA_COLLABORATOR_EVENTS_URL"`
	Token            string        `envconfig:"CMDA_COLLABORATOR_TOKEN"`
	Timeout          time.Duration `envconfig:"CMDA_COLLABORATOR_TIMEOUT" default:"10s"`
}

type RateLimitConfig struct {
	LookupWindow     time.Duration `envconfig:"CMDA_RATE_LIMIT_LOOKUP_WINDOW" default:"1m"`
	LookupIPLimit    int           `envconfig:"CMDA_RATE_LIMIT_LOOKUP_IP_LIMIT" default:"20"`
	LookupEmailLimit int           `envconfig:"CMDA_RATE_LIMIT_LOOKUP_EMAIL_LIMIT" default:"5"`
}

// CORSConfig lists the browser origins allowed to call the member routes.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CMDA_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"CMDA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	PaymentsTopic string `envconfig:"CMDA_PUBSUB_PAYMENTS_TOPIC" default:"cmda-payment-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CMDA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CMDA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CMDA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"CMDA_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"CMDA_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"CMDA_CRON_LOCK_TTL" default:"10m"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
