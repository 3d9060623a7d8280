package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Gateway      GatewayConfig
	Sync         SyncConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Billing      BillingConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"SUPPLYSYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"SUPPLYSYNC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SUPPLYSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SUPPLYSYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SUPPLYSYNC_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SUPPLYSYNC_DB_DSN"`
	Driver string `envconfig:"SUPPLYSYNC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SUPPLYSYNC_DB_HOST"`
	LegacyPort     int    `envconfig:"SUPPLYSYNC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SUPPLYSYNC_DB_USER"`
	LegacyPassword string `envconfig:"SUPPLYSYNC_DB_PASSWORD"`
	LegacyName     string `envconfig:"SUPPLYSYNC_DB_NAME"`
	LegacySSLMode  string `envconfig:"SUPPLYSYNC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SUPPLYSYNC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SUPPLYSYNC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SUPPLYSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SUPPLYSYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SUPPLYSYNC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SUPPLYSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"SUPPLYSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"SUPPLYSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SUPPLYSYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SUPPLYSYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SUPPLYSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SUPPLYSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SUPPLYSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SUPPLYSYNC_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SUPPLYSYNC_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SUPPLYSYNC_JWT_EXPIRATION_MINUTES" default:"60"`
}

// GatewayConfig governs outbound supplier API calls.
type GatewayConfig struct {
	CallTimeout    time.Duration `envconfig:"SUPPLYSYNC_GATEWAY_CALL_TIMEOUT" default:"15s"`
	ProbeTimeout   time.Duration `envconfig:"SUPPLYSYNC_GATEWAY_PROBE_TIMEOUT" default:"5s"`
	MaxIdleConns   int           `envconfig:"SUPPLYSYNC_GATEWAY_MAX_IDLE_CONNS" default:"20"`
	UserAgent      string        `envconfig:"SUPPLYSYNC_GATEWAY_USER_AGENT" default:"supplysync/1.0"`
	CredentialsDir string        `envconfig:"SUPPLYSYNC_GATEWAY_CREDENTIALS_DIR"`
}

// SyncConfig governs the sync worker loop and write serialization.
type SyncConfig struct {
	PollInterval   time.Duration `envconfig:"SUPPLYSYNC_SYNC_POLL_INTERVAL" default:"1m"`
	LockTTL        time.Duration `envconfig:"SUPPLYSYNC_SYNC_LOCK_TTL" default:"30s"`
	BatchSize      int           `envconfig:"SUPPLYSYNC_SYNC_BATCH_SIZE" default:"50"`
	MaxConcurrency int           `envconfig:"SUPPLYSYNC_SYNC_MAX_CONCURRENCY" default:"4"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SUPPLYSYNC_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SUPPLYSYNC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SUPPLYSYNC_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PriceTopic        string `envconfig:"SUPPLYSYNC_PUBSUB_PRICE_TOPIC" default:"ss-price-events"`
	PriceSubscription string `envconfig:"SUPPLYSYNC_PUBSUB_PRICE_SUBSCRIPTION"`
	AuditTopic        string `envconfig:"SUPPLYSYNC_PUBSUB_AUDIT_TOPIC" default:"ss-audit-events"`
	AuditSubscription string `envconfig:"SUPPLYSYNC_PUBSUB_AUDIT_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SUPPLYSYNC_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SUPPLYSYNC_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SUPPLYSYNC_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// BillingConfig carries the Stripe key names. The values are opaque secrets:
// the core never parses or logs them, it only hands them to the billing
// frontend by reference.
type BillingConfig struct {
	StripeAPIKeyRef  string `envconfig:"SUPPLYSYNC_STRIPE_API_KEY_REF" default:"STRIPE_API_KEY"`
	StripeWebhookRef string `envconfig:"SUPPLYSYNC_STRIPE_WEBHOOK_SECRET_REF" default:"STRIPE_WEBHOOK_SECRET"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SUPPLYSYNC_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SUPPLYSYNC_AUTO_MIGRATE" default:"false"`
}

// ResolveSecret looks up an opaque secret by its configured reference name.
// Returns empty string when the reference is unset.
func ResolveSecret(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	return os.Getenv(ref)
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
