// internal/config/config.go
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment  string
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Issuance     IssuanceConfig
	Verification VerificationConfig
	QR           QRConfig
	AWS          AWSConfig
	Billing      BillingConfig
	I18n         I18nConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
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
	SecretKey       string
	AccessTokenTTL  int // in hours
	RefreshTokenTTL int // in hours
}

type IssuanceConfig struct {
	MaxUnitsPerBatch int // requested quantities are clamped to this, never rejected
	ExpiryYears      int
}

// VerificationConfig tunes the anti-cloning heuristic. CloneDistance is in
// lat/lon degrees (plain Euclidean), CloneWindowHours in fractional hours;
// both trade false positives against catching cloned codes scanned far apart.
type VerificationConfig struct {
	CloneWindowHours float64
	CloneDistance    float64
	HistoryLimit     int
}

type QRConfig struct {
	EncryptionKeyHex string // 32 bytes hex; a per-process key is generated when empty
	IVHex            string // 16 bytes hex
	VerifyBaseURL    string
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	CloudFrontURL   string
}

type BillingConfig struct {
	StripeSecretKey string
	PerUnitFee      float64 // USD per issued unit; 0 disables billing
}

type I18nConfig struct {
	DefaultLocale string
	LocalesPath   string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "firstscanit"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL:  getEnvAsInt("JWT_ACCESS_TTL", 24),   // 24 hours
			RefreshTokenTTL: getEnvAsInt("JWT_REFRESH_TTL", 168), // 7 days
		},
		Issuance: IssuanceConfig{
			MaxUnitsPerBatch: getEnvAsInt("ISSUANCE_MAX_UNITS", 100),
			ExpiryYears:      getEnvAsInt("ISSUANCE_EXPIRY_YEARS", 3),
		},
		Verification: VerificationConfig{
			CloneWindowHours: getEnvAsFloat("VERIFY_CLONE_WINDOW_HOURS", 0.1),
			CloneDistance:    getEnvAsFloat("VERIFY_CLONE_DISTANCE", 1.0),
			HistoryLimit:     getEnvAsInt("VERIFY_HISTORY_LIMIT", 5),
		},
		QR: QRConfig{
			EncryptionKeyHex: getEnv("QR_ENCRYPTION_KEY", ""),
			IVHex:            getEnv("QR_ENCRYPTION_IV", ""),
			VerifyBaseURL:    getEnv("QR_VERIFY_BASE_URL", "https://verify.firstscanit.com/verify"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "firstscanit-proof-artifacts"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
		},
		Billing: BillingConfig{
			StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
			PerUnitFee:      getEnvAsFloat("BILLING_PER_UNIT_FEE", 0),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
			LocalesPath:   getEnv("LOCALES_PATH", "./internal/i18n/locales"),
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

	if c.QR.EncryptionKeyHex != "" {
		if key, err := hex.DecodeString(c.QR.EncryptionKeyHex); err != nil || len(key) != 32 {
			return fmt.Errorf("QR_ENCRYPTION_KEY must be 32 bytes of hex")
		}
	}
	if c.QR.IVHex != "" {
		if iv, err := hex.DecodeString(c.QR.IVHex); err != nil || len(iv) != 16 {
			return fmt.Errorf("QR_ENCRYPTION_IV must be 16 bytes of hex")
		}
	}

	if c.Issuance.MaxUnitsPerBatch < 1 {
		return fmt.Errorf("ISSUANCE_MAX_UNITS must be at least 1")
	}

	if c.Verification.HistoryLimit < 1 {
		return fmt.Errorf("VERIFY_HISTORY_LIMIT must be at least 1")
	}

	return nil
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
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
