package config

const (
	EnvPrefix = "CMDA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv              = "CMDA_APP_ENV"
	EnvPort                = "CMDA_APP_PORT"
	EnvDBDSN               = "CMDA_DB_DSN"
	EnvDBHost              = "CMDA_DB_HOST"
	EnvDBUser              = "CMDA_DB_USER"
	EnvDBName              = "CMDA_DB_NAME"
	EnvRedisURL            = "CMDA_REDIS_URL"
	EnvJWTSecret           = "CMDA_JWT_SECRET"
	EnvJWTIssuer           = "CMDA_JWT_ISSUER"
	EnvInternalToken       = "CMDA_INTERNAL_SERVICE_TOKEN"
	EnvUseSQLite           = "CMDA_USE_SQLITE"
	EnvPaystackSecretKey   = "CMDA_PAYSTACK_SECRET_KEY"
	EnvPaystackChannels    = "CMDA_PAYSTACK_CHANNELS"
	EnvPaymentsIntentTTL   = "CMDA_PAYMENTS_INTENT_TTL"
	EnvCollaboratorDonate  = "CMDA_COLLABORATOR_DONATIONS_URL"
	EnvPubSubPaymentsTopic = "CMDA_PUBSUB_PAYMENTS_TOPIC"
	EnvCORSAllowedOrigins  = "CMDA_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{
	EnvDBHost,
	EnvDBUser,
	EnvDBName,
}
