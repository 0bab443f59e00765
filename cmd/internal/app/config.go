package app

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"

	authapi "freemonitor/cmd/internal/auth/api"
	"freemonitor/cmd/internal/auth/session"
	"freemonitor/cmd/internal/ratelimit"
	"freemonitor/cmd/security/token"
)

// Config contains all runtime configuration. It is loaded once at
// startup from the environment and an optional .env file; nothing else
// in the program reads environment variables.
type Config struct {
	HTTPAddr  string `mapstructure:"FM_HTTP_ADDR"`
	LogLevel  string `mapstructure:"FM_LOG_LEVEL"`
	LogFormat string `mapstructure:"FM_LOG_FORMAT"`
	Env       string `mapstructure:"FM_ENV"`

	ReadHeaderTimeout time.Duration `mapstructure:"FM_HTTP_READ_HEADER_TIMEOUT"`
	ReadTimeout       time.Duration `mapstructure:"FM_HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `mapstructure:"FM_HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `mapstructure:"FM_HTTP_IDLE_TIMEOUT"`
	MaxHeaderBytes    int           `mapstructure:"FM_HTTP_MAX_HEADER_BYTES"`

	DatabaseURL   string `mapstructure:"FM_DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"FM_DB_MAX_CONNS"`
	DBMinConns    int32  `mapstructure:"FM_DB_MIN_CONNS"`
	DBAutoMigrate bool   `mapstructure:"FM_DB_AUTO_MIGRATE"`

	// If true, /readyz returns 503 unless the database is configured
	// and reachable.
	ReadinessRequireDB bool `mapstructure:"FM_READINESS_REQUIRE_DB"`

	JWTSecret         string        `mapstructure:"FM_JWT_SECRET"`
	JWTIssuer         string        `mapstructure:"FM_JWT_ISSUER"`
	AccessTTL         time.Duration `mapstructure:"FM_AUTH_ACCESS_TTL"`
	RefreshTTL        time.Duration `mapstructure:"FM_AUTH_REFRESH_TTL"`
	ClockSkew         time.Duration `mapstructure:"FM_AUTH_CLOCK_SKEW"`
	RefreshTokenBytes int           `mapstructure:"FM_REFRESH_TOKEN_BYTES"`
	TokenHMACKey      string        `mapstructure:"FM_TOKEN_HMAC_KEY"`

	AuthRateLimit      int           `mapstructure:"FM_AUTH_RATE_LIMIT"`
	AuthRateWindow     time.Duration `mapstructure:"FM_AUTH_RATE_WINDOW"`
	AuthSkipThrottling bool          `mapstructure:"FM_AUTH_SKIP_THROTTLING"`
	AuthTrustProxy     bool          `mapstructure:"FM_AUTH_TRUST_PROXY"`
	AuthMaxBodyBytes   int64         `mapstructure:"FM_AUTH_MAX_BODY_BYTES"`

	CORSAllowedOrigins   []string `mapstructure:"-"`
	CORSAllowedOriginsCS string   `mapstructure:"FM_CORS_ALLOWED_ORIGINS"`
	CORSAllowCredentials bool     `mapstructure:"FM_CORS_ALLOW_CREDENTIALS"`
	CORSMaxAgeSeconds    int      `mapstructure:"FM_CORS_MAX_AGE_SECONDS"`

	DevUserID    string `mapstructure:"FM_DEV_USER_ID"`
	DevUserEmail string `mapstructure:"FM_DEV_USER_EMAIL"`
	DevUserName  string `mapstructure:"FM_DEV_USER_NAME"`
	DevUserRole  string `mapstructure:"FM_DEV_USER_ROLE"`

	// GeneratedJWTSecret marks that the secret was generated at startup
	// because none was configured (development only).
	GeneratedJWTSecret bool `mapstructure:"-"`
}

// LoadConfig reads .env (if present), then builds and validates Config
// from the environment. Env vars override .env values.
func LoadConfig() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("FM_HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("FM_LOG_LEVEL", "info")
	v.SetDefault("FM_LOG_FORMAT", "json")
	v.SetDefault("FM_ENV", "development")

	v.SetDefault("FM_HTTP_READ_HEADER_TIMEOUT", "5s")
	v.SetDefault("FM_HTTP_READ_TIMEOUT", "15s")
	v.SetDefault("FM_HTTP_WRITE_TIMEOUT", "15s")
	v.SetDefault("FM_HTTP_IDLE_TIMEOUT", "60s")
	v.SetDefault("FM_HTTP_MAX_HEADER_BYTES", 1<<20)

	v.SetDefault("FM_DATABASE_URL", "")
	v.SetDefault("FM_DB_MAX_CONNS", 10)
	v.SetDefault("FM_DB_MIN_CONNS", 0)
	v.SetDefault("FM_DB_AUTO_MIGRATE", true)
	v.SetDefault("FM_READINESS_REQUIRE_DB", false)

	v.SetDefault("FM_JWT_SECRET", "")
	v.SetDefault("FM_JWT_ISSUER", "freemonitor")
	v.SetDefault("FM_AUTH_ACCESS_TTL", "15m")
	v.SetDefault("FM_AUTH_REFRESH_TTL", "168h") // 7d
	v.SetDefault("FM_AUTH_CLOCK_SKEW", "30s")
	v.SetDefault("FM_REFRESH_TOKEN_BYTES", 32)
	v.SetDefault("FM_TOKEN_HMAC_KEY", "")

	v.SetDefault("FM_AUTH_RATE_LIMIT", 5)
	v.SetDefault("FM_AUTH_RATE_WINDOW", "60s")
	v.SetDefault("FM_AUTH_SKIP_THROTTLING", false)
	v.SetDefault("FM_AUTH_TRUST_PROXY", false)
	v.SetDefault("FM_AUTH_MAX_BODY_BYTES", 1<<20)

	v.SetDefault("FM_CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("FM_CORS_ALLOW_CREDENTIALS", false)
	v.SetDefault("FM_CORS_MAX_AGE_SECONDS", 600)

	v.SetDefault("FM_DEV_USER_ID", "")
	v.SetDefault("FM_DEV_USER_EMAIL", "dev@freemonitor.dev")
	v.SetDefault("FM_DEV_USER_NAME", "Dev User")
	v.SetDefault("FM_DEV_USER_ROLE", "admin")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.CORSAllowedOrigins = splitCSV(cfg.CORSAllowedOriginsCS)

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env == "" {
		c.Env = "development"
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		if c.Env != "development" {
			return errors.New("config: FM_JWT_SECRET must be set outside development")
		}
		secret, err := randomSecret(32)
		if err != nil {
			return fmt.Errorf("config: generate jwt secret: %w", err)
		}
		c.JWTSecret = secret
		c.GeneratedJWTSecret = true
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("config: FM_JWT_SECRET must be at least 32 bytes")
	}

	if err := token.ValidateDigestKey([]byte(c.TokenHMACKey)); err != nil {
		return fmt.Errorf("config: FM_TOKEN_HMAC_KEY: %w", err)
	}

	if c.AuthSkipThrottling && c.Env == "production" {
		return errors.New("config: FM_AUTH_SKIP_THROTTLING must not be set in production")
	}

	return nil
}

// SessionConfig maps the app config onto the session subsystem's config.
func (c Config) SessionConfig() session.Config {
	sc := session.DefaultConfig()
	sc.Issuer = c.JWTIssuer
	sc.Secret = []byte(c.JWTSecret)
	if c.AccessTTL > 0 {
		sc.AccessTTL = c.AccessTTL
	}
	if c.RefreshTTL > 0 {
		sc.RefreshTTL = c.RefreshTTL
	}
	if c.ClockSkew >= 0 {
		sc.ClockSkew = c.ClockSkew
	}
	if c.RefreshTokenBytes > 0 {
		sc.RefreshTokenBytes = c.RefreshTokenBytes
	}
	if c.TokenHMACKey != "" {
		sc.DigestKey = []byte(c.TokenHMACKey)
	}
	return sc
}

// AuthConfig maps the app config onto the auth API's config.
func (c Config) AuthConfig() authapi.Config {
	ac := authapi.DefaultConfig()
	ac.Env = c.Env
	ac.TrustProxy = c.AuthTrustProxy
	if c.AuthMaxBodyBytes > 0 {
		ac.MaxBodyBytes = c.AuthMaxBodyBytes
	}
	if c.Env == "development" && c.DevUserID != "" {
		ac.DevUser = authapi.DevUser{
			ID:    c.DevUserID,
			Email: c.DevUserEmail,
			Name:  c.DevUserName,
			Role:  c.DevUserRole,
		}
	}
	return ac
}

// AuthRatePolicy builds the throttling policy for the auth endpoints.
func (c Config) AuthRatePolicy() ratelimit.AuthPolicy {
	return ratelimit.AuthPolicy{
		Skip:  c.AuthSkipThrottling,
		Limit: c.AuthRateLimit,
		ClientIP: func(r *http.Request) net.IP {
			return authapi.ClientIP(r, c.AuthTrustProxy)
		},
	}
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func randomSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
