// Package config loads the server's configuration from environment
// variables once at startup. The resulting Config is immutable and
// satisfies the root package's Config interface.
package config

import (
	"os"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Defaults used when the corresponding environment variable is unset.
const (
	DefaultPort            = "8080"
	DefaultSessionDuration = 24 // hours
	DefaultTokenExpiration = 1  // hours
	DefaultIssuer          = "handoff"
	DefaultMainAppURL      = "https://tatendamhakaprojects.web.app"
	DefaultEnvironment     = "development"
)

// Config holds every runtime option the server reads.
type Config struct {
	Port            string
	SigningKey      string
	SessionSecret   string
	TokenExpiration int
	SessionDuration int
	Issuer          string
	Audience        []string
	MainAppURL      string
	JWKSEndpoint    string
	Environment     string
	DatabaseDSN     string
	StubProvider    bool
	RateLimitPerMin int
	RateLimitBurst  int
}

// Load reads the configuration from the environment. SIGNING_KEY and
// SESSION_SECRET are required outside development.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnvString("PORT", DefaultPort),
		SigningKey:      os.Getenv("SIGNING_KEY"),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		TokenExpiration: getEnvInt("TOKEN_EXPIRATION_HOURS", DefaultTokenExpiration),
		SessionDuration: getEnvInt("SESSION_DURATION_HOURS", DefaultSessionDuration),
		Issuer:          getEnvString("TOKEN_ISSUER", DefaultIssuer),
		Audience:        splitList(os.Getenv("TOKEN_AUDIENCE")),
		MainAppURL:      getEnvString("MAIN_APP_URL", DefaultMainAppURL),
		JWKSEndpoint:    os.Getenv("JWKS_ENDPOINT"),
		Environment:     getEnvString("APP_ENV", DefaultEnvironment),
		DatabaseDSN:     os.Getenv("DATABASE_DSN"),
		StubProvider:    getEnvBool("STUB_PROVIDER", true),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 30),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 10),
	}

	var missing []string
	if cfg.IsProduction() {
		if cfg.SigningKey == "" {
			missing = append(missing, "SIGNING_KEY")
		}
		if cfg.SessionSecret == "" {
			missing = append(missing, "SESSION_SECRET")
		}
	}
	if len(missing) > 0 {
		return nil, goerrors.New("required environment variables are not set", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"missing": missing})
	}

	// Development fallbacks keep the demo runnable with no env at all.
	if cfg.SigningKey == "" {
		cfg.SigningKey = "dev-signing-key"
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-session-secret"
	}

	return cfg, nil
}

func (c *Config) GetSigningKey() string    { return c.SigningKey }
func (c *Config) GetSessionSecret() string { return c.SessionSecret }
func (c *Config) GetTokenExpiration() int  { return c.TokenExpiration }
func (c *Config) GetSessionDuration() int  { return c.SessionDuration }
func (c *Config) GetIssuer() string        { return c.Issuer }
func (c *Config) GetAudience() []string    { return c.Audience }
func (c *Config) GetMainAppURL() string    { return c.MainAppURL }
func (c *Config) GetJWKSEndpoint() string  { return c.JWKSEndpoint }
func (c *Config) GetEnvironment() string   { return c.Environment }

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
