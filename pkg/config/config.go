package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root application configuration, assembled from environment
// variables the way cmd/container.go's getEnv helper does.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	MFA      MFAConfig
	Channel  ChannelConfig
	Vault    VaultConfig
	Email    NotifxConfig
	Jobx     JobxConfig
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the Redis connection used for the KV store.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (r RedisConfig) Address() string {
	return r.Host + ":" + strconv.Itoa(r.Port)
}

// AuthConfig configures the token issuer and the login lockout policy.
type AuthConfig struct {
	SigningSecret      string
	Issuer             string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	LockoutThreshold   int
	LockoutWindow      time.Duration
	LockoutDuration    time.Duration
	BcryptCost         int
	SessionTTL         time.Duration
	RememberSessionTTL time.Duration
}

// MFAConfig configures TOTP issuer naming and code delivery. Resend
// throttling is a fixed sliding window internal to pkg/mfa, not configurable
// here, matching the login lockout window's own fixed shape.
type MFAConfig struct {
	TOTPIssuer      string
	CodeTTL         time.Duration
	BackupCodeCount int
}

// ChannelConfig configures the channel manager's health-check loop.
type ChannelConfig struct {
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
	UnhealthyWindow     time.Duration
	MinSuccessRate      float64
}

// VaultConfig configures credential-at-rest encryption for provider channels.
type VaultConfig struct {
	EncryptionKey string // 32-byte key, base64 or raw depending on deployment
}

func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "manifesto"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			SigningSecret:    getEnv("AUTH_SIGNING_SECRET", ""),
			Issuer:           getEnv("AUTH_ISSUER", "manifesto"),
			AccessTokenTTL:   getEnvDuration("AUTH_ACCESS_TOKEN_TTL", 60*time.Minute),
			RefreshTokenTTL:  getEnvDuration("AUTH_REFRESH_TOKEN_TTL", 7*24*time.Hour),
			LockoutThreshold: getEnvInt("AUTH_LOCKOUT_THRESHOLD", 5),
			LockoutWindow:    getEnvDuration("AUTH_LOCKOUT_WINDOW", 15*time.Minute),
			LockoutDuration:  getEnvDuration("AUTH_LOCKOUT_DURATION", 15*time.Minute),
			BcryptCost:       getEnvInt("AUTH_BCRYPT_COST", 12),
			SessionTTL:         getEnvDuration("AUTH_SESSION_TTL", 24*time.Hour),
			RememberSessionTTL: getEnvDuration("AUTH_REMEMBER_SESSION_TTL", 30*24*time.Hour),
		},
		MFA: MFAConfig{
			TOTPIssuer:      getEnv("MFA_TOTP_ISSUER", "Manifesto"),
			CodeTTL:         getEnvDuration("MFA_CODE_TTL", 5*time.Minute),
			BackupCodeCount: getEnvInt("MFA_BACKUP_CODE_COUNT", 10),
		},
		Channel: ChannelConfig{
			HealthCheckInterval: getEnvDuration("CHANNEL_HEALTH_CHECK_INTERVAL", 60*time.Second),
			HealthCheckTimeout:  getEnvDuration("CHANNEL_HEALTH_CHECK_TIMEOUT", 5*time.Second),
			UnhealthyWindow:     getEnvDuration("CHANNEL_UNHEALTHY_WINDOW", 5*time.Minute),
			MinSuccessRate:      getEnvFloat("CHANNEL_MIN_SUCCESS_RATE", 0.8),
		},
		Vault: VaultConfig{
			EncryptionKey: getEnv("VAULT_ENCRYPTION_KEY", ""),
		},
		Email: loadNotifxConfig(),
		Jobx:  loadJobxConfig(),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvStringSlice(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		return parts
	}
	return fallback
}
