package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server      ServerConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Keycloak    KeycloakConfig
	JWT         JWTConfig
	RateLimit   RateLimitConfig
	Ledger      LedgerConfig
	MinIO       MinIOConfig
	Audit       AuditConfig
	Idempotency IdempotencyConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// MongoDBConfig is optional. With an empty URI the ledger journal is kept in
// memory and audit reports are not persisted.
type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type KeycloakConfig struct {
	URL      string
	Realm    string
	ClientID string
	// AddressClaim names the token claim carrying the caller's ledger address.
	AddressClaim string
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type LedgerConfig struct {
	GenesisOwner      string
	Threshold         int
	JournalCollection string
}

// MinIOConfig selects the content store. An empty endpoint keeps content in memory.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type AuditConfig struct {
	Enabled    bool
	Interval   time.Duration
	Caller     string
	Collection string
	// LedgerURL is where the standalone auditor reaches the ledger service.
	LedgerURL string
}

type IdempotencyConfig struct {
	TTL time.Duration
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	return load(true)
}

// LoadAuditorConfig loads configuration for the standalone auditor, which
// never opens a ledger itself and so needs no genesis owner.
func LoadAuditorConfig() (*Config, error) {
	return load(false)
}

func load(ledgerNode bool) (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_DATABASE", "wikichain")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("KEYCLOAK_ADDRESS_CLAIM", "sub")
	viper.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	viper.SetDefault("RATE_LIMIT_RPS", 10)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	viper.SetDefault("LEDGER_THRESHOLD", 3)
	viper.SetDefault("LEDGER_JOURNAL_COLLECTION", "ledger_journal")
	viper.SetDefault("MINIO_BUCKET", "wikichain-content")
	viper.SetDefault("AUDIT_INTERVAL_SECONDS", 300)
	viper.SetDefault("AUDIT_CALLER", "poe-auditor")
	viper.SetDefault("AUDIT_COLLECTION", "audit_reports")
	viper.SetDefault("LEDGER_URL", "http://localhost:5001")
	viper.SetDefault("IDEMPOTENCY_TTL_SECONDS", 86400)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		Keycloak: KeycloakConfig{
			URL:          viper.GetString("KEYCLOAK_URL"),
			Realm:        viper.GetString("KEYCLOAK_REALM"),
			ClientID:     viper.GetString("KEYCLOAK_CLIENT_ID"),
			AddressClaim: viper.GetString("KEYCLOAK_ADDRESS_CLAIM"),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessTokenTTL: time.Duration(viper.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Ledger: LedgerConfig{
			GenesisOwner:      viper.GetString("LEDGER_GENESIS_OWNER"),
			Threshold:         viper.GetInt("LEDGER_THRESHOLD"),
			JournalCollection: viper.GetString("LEDGER_JOURNAL_COLLECTION"),
		},
		MinIO: MinIOConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
		},
		Audit: AuditConfig{
			Enabled:    viper.GetBool("AUDIT_ENABLED"),
			Interval:   time.Duration(viper.GetInt("AUDIT_INTERVAL_SECONDS")) * time.Second,
			Caller:     viper.GetString("AUDIT_CALLER"),
			Collection: viper.GetString("AUDIT_COLLECTION"),
			LedgerURL:  viper.GetString("LEDGER_URL"),
		},
		Idempotency: IdempotencyConfig{
			TTL: time.Duration(viper.GetInt("IDEMPOTENCY_TTL_SECONDS")) * time.Second,
		},
	}

	// Basic validation
	if ledgerNode && cfg.Ledger.GenesisOwner == "" {
		cfg.Ledger.GenesisOwner = getEnvOrPanic("LEDGER_GENESIS_OWNER")
	}
	if cfg.JWT.Secret == "" {
		log.Println("WARNING: JWT_SECRET is not set; set a secure value in production")
	}
	if cfg.Ledger.Threshold < 1 {
		return nil, fmt.Errorf("LEDGER_THRESHOLD must be >= 1, got %d", cfg.Ledger.Threshold)
	}
	if cfg.Audit.Interval <= 0 {
		return nil, fmt.Errorf("AUDIT_INTERVAL_SECONDS must be > 0, got %d", viper.GetInt("AUDIT_INTERVAL_SECONDS"))
	}

	return cfg, nil
}

func getEnvOrPanic(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("environment variable %s is required", key)
	}
	return v
}
