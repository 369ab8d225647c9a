package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "wearmarket"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "WEARMARKET_DB_DSN"
	EnvDBHost = "WEARMARKET_DB_HOST"
	EnvDBUser = "WEARMARKET_DB_USER"
	EnvDBName = "WEARMARKET_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Checkout CheckoutConfig
	Features FeatureFlagsConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Eventing EventingConfig
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
	Env          string `envconfig:"WEARMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"WEARMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WEARMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WEARMARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"WEARMARKET_DB_DSN"`
	Driver string `envconfig:"WEARMARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WEARMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"WEARMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WEARMARKET_DB_USER"`
	LegacyPassword string `envconfig:"WEARMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"WEARMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"WEARMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WEARMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WEARMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WEARMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WEARMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WEARMARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WEARMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"WEARMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"WEARMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WEARMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WEARMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WEARMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WEARMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WEARMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"WEARMARKET_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"WEARMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"WEARMARKET_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"WEARMARKET_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// CheckoutConfig bounds the order placement transaction.
type CheckoutConfig struct {
	TxTimeout time.Duration `envconfig:"WEARMARKET_CHECKOUT_TX_TIMEOUT" default:"10s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WEARMARKET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WEARMARKET_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"WEARMARKET_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"WEARMARKET_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"WEARMARKET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"WEARMARKET_PUBSUB_DOMAIN_TOPIC" required:"true"`
	DomainSubscription string `envconfig:"WEARMARKET_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"WEARMARKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"WEARMARKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"WEARMARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"WEARMARKET_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
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
