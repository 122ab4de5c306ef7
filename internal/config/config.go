// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	AWS         AWSConfig
	Payment     PaymentConfig
	NATS        NATSConfig
	Licensing   LicensingConfig
	CORS        CORSConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int

	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit      float64
	RateLimitBurst int
}

type DatabaseConfig struct {
	URL          string
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey string
	Issuer    string
}

type AWSConfig struct {
	Region            string
	AccessKeyID       string
	SecretAccessKey   string
	ContractsBucket   string
	ContractKeyPrefix string
	CloudFrontURL     string
}

type PaymentConfig struct {
	StripeSecretKey string
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
	RelayInterval int // in seconds
	RelayBatch    int
}

// LicensingConfig holds the commercial defaults of the engine. Percentages
// are decimals, never floats.
type LicensingConfig struct {
	PlatformFeePercent        decimal.Decimal
	DefaultWriterSharePercent decimal.Decimal
	NegotiationTTLDays        int
	SignatureWindowDays       int
	TemplatesPath             string
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),

			RateLimit:      getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10),
			RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Database: DatabaseConfig{
			URL:          getEnv("DATABASE_URL", ""),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "legato_licensing"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			Issuer:    getEnv("JWT_ISSUER", "legato-identity"),
		},
		AWS: AWSConfig{
			Region:            getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:       getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ContractsBucket:   getEnv("AWS_CONTRACTS_BUCKET", "legato-contracts"),
			ContractKeyPrefix: getEnv("AWS_CONTRACT_KEY_PREFIX", "contracts"),
			CloudFrontURL:     getEnv("AWS_CLOUDFRONT_URL", ""),
		},
		Payment: PaymentConfig{
			StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "licensing"),
			RelayInterval: getEnvAsInt("OUTBOX_RELAY_INTERVAL", 5),
			RelayBatch:    getEnvAsInt("OUTBOX_RELAY_BATCH", 100),
		},
		Licensing: LicensingConfig{
			PlatformFeePercent:        getEnvAsDecimal("PLATFORM_FEE_PERCENT", decimal.NewFromInt(15)),
			DefaultWriterSharePercent: getEnvAsDecimal("DEFAULT_WRITER_SHARE_PERCENT", decimal.NewFromInt(85)),
			NegotiationTTLDays:        getEnvAsInt("NEGOTIATION_TTL_DAYS", 30),
			SignatureWindowDays:       getEnvAsInt("SIGNATURE_WINDOW_DAYS", 7),
			TemplatesPath:             getEnv("LICENSE_TEMPLATES_PATH", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.NATS.RelayInterval <= 0 {
		return fmt.Errorf("OUTBOX_RELAY_INTERVAL must be positive")
	}
	if c.NATS.RelayBatch <= 0 {
		return fmt.Errorf("OUTBOX_RELAY_BATCH must be positive")
	}

	return c.Licensing.Validate()
}

func (l LicensingConfig) Validate() error {
	if !validPercent(l.PlatformFeePercent) {
		return fmt.Errorf("PLATFORM_FEE_PERCENT must be between 0 and 100 with at most two decimals, got %s", l.PlatformFeePercent)
	}
	if !validPercent(l.DefaultWriterSharePercent) {
		return fmt.Errorf("DEFAULT_WRITER_SHARE_PERCENT must be between 0 and 100 with at most two decimals, got %s", l.DefaultWriterSharePercent)
	}
	if l.NegotiationTTLDays <= 0 {
		return fmt.Errorf("NEGOTIATION_TTL_DAYS must be positive")
	}
	if l.SignatureWindowDays <= 0 {
		return fmt.Errorf("SIGNATURE_WINDOW_DAYS must be positive")
	}
	return nil
}

func validPercent(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(decimal.NewFromInt(100)) && p.Equal(p.Round(2))
}

// DefaultLicensing returns the licensing defaults without reading the
// environment.
func DefaultLicensing() LicensingConfig {
	return LicensingConfig{
		PlatformFeePercent:        decimal.NewFromInt(15),
		DefaultWriterSharePercent: decimal.NewFromInt(85),
		NegotiationTTLDays:        30,
		SignatureWindowDays:       7,
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
