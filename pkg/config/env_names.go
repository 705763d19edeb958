package config

// EnvPrefix is passed to envconfig; individual fields carry fully
// prefixed names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "CARRETE_APP_ENV"
	EnvPort     = "CARRETE_APP_PORT"
	EnvLogLevel = "CARRETE_LOG_LEVEL"

	EnvDBDSN  = "CARRETE_DB_DSN"
	EnvDBHost = "CARRETE_DB_HOST"
	EnvDBUser = "CARRETE_DB_USER"
	EnvDBName = "CARRETE_DB_NAME"

	EnvRedisURL = "CARRETE_REDIS_URL"

	EnvGCPProjectID = "CARRETE_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic = "CARRETE_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub   = "CARRETE_PUBSUB_ORDERS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
