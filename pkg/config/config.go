package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Rollup       RollupConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARRETE_APP_ENV" required:"true"`
	Port         string `envconfig:"CARRETE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CARRETE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARRETE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CARRETE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CARRETE_DB_DSN"`
	Driver string `envconfig:"CARRETE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CARRETE_DB_HOST"`
	LegacyPort     int    `envconfig:"CARRETE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CARRETE_DB_USER"`
	LegacyPassword string `envconfig:"CARRETE_DB_PASSWORD"`
	LegacyName     string `envconfig:"CARRETE_DB_NAME"`
	LegacySSLMode  string `envconfig:"CARRETE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARRETE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARRETE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARRETE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARRETE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARRETE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CARRETE_REDIS_ADDR"`
	Password     string        `envconfig:"CARRETE_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARRETE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARRETE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARRETE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARRETE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARRETE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARRETE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CARRETE_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"CARRETE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CARRETE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"CARRETE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CARRETE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"CARRETE_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription string `envconfig:"CARRETE_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
}

type RollupConfig struct {
	HandleTimeout time.Duration `envconfig:"CARRETE_ROLLUP_HANDLE_TIMEOUT" default:"25s"`
	TxMaxRetries  int           `envconfig:"CARRETE_ROLLUP_TX_MAX_RETRIES" default:"5"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
