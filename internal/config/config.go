package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string   `mapstructure:"PORT"`
	Env                string   `mapstructure:"ENV"`
	DatabaseURL        string   `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer         string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL        string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience       string   `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey     string   `mapstructure:"AUTH_SIGNING_KEY"`
	DefaultTenant      string   `mapstructure:"DEFAULT_TENANT"`
	CORSOrigins        []string `mapstructure:"CORS_ORIGINS"`
	PHISecret          string   `mapstructure:"PHI_ENCRYPTION_SECRET"`
	AuditRetentionDays int      `mapstructure:"AUDIT_RETENTION_DAYS"`
	RateLimitRPS       float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int      `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeoutSecs int      `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	BodyLimit          string   `mapstructure:"BODY_LIMIT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DEFAULT_TENANT", "default")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("AUDIT_RETENTION_DAYS", 730)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	v.SetDefault("BODY_LIMIT", "1M")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("DEFAULT_TENANT")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("PHI_ENCRYPTION_SECRET")
	v.BindEnv("AUDIT_RETENTION_DAYS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("REQUEST_TIMEOUT_SECONDS")
	v.BindEnv("BODY_LIMIT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run.
//
// PHI_ENCRYPTION_SECRET may be omitted in development — the key provider
// falls back to a random per-process key with a loud warning — but running
// production that way would produce PHI that cannot survive a restart, so
// production refuses to start without it.
//
// Production must also have real session validation configured: either an
// identity provider (AUTH_ISSUER / AUTH_JWKS_URL) or an explicit signing key.
func (c *Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}

	if c.PHISecret == "" {
		return fmt.Errorf("PHI_ENCRYPTION_SECRET is required in production")
	}
	if c.AuthIssuer == "" && c.AuthJWKSURL == "" && c.AuthSigningKey == "" {
		return fmt.Errorf(
			"authentication is not configured: set AUTH_ISSUER (or AUTH_JWKS_URL) for an external " +
				"identity provider, or AUTH_SIGNING_KEY for locally-issued sessions")
	}
	if c.AuditRetentionDays <= 0 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must be positive, got %d", c.AuditRetentionDays)
	}
	return nil
}
