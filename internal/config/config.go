package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full environment-driven configuration of the Mefil service.
type Config struct {
	Profile      string   `env:"MEFIL_PROFILE" envDefault:"dev"`
	ListenAddr   string   `env:"MEFIL_LISTEN_ADDR" envDefault:":5070"`
	BaseURL      string   `env:"MEFIL_BASE_URL" envDefault:"http://localhost:5070"`
	CORSOrigins  []string `env:"MEFIL_CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	CookieSecure bool     `env:"MEFIL_COOKIE_SECURE" envDefault:"false"`

	SessionSecret string        `env:"MEFIL_SESSION_SECRET"`
	SessionTTL    time.Duration `env:"MEFIL_SESSION_TTL" envDefault:"720h"`
	TokenIssuer   string        `env:"MEFIL_TOKEN_ISSUER" envDefault:"mefil"`

	BelalPassword  string `env:"MEFIL_BELAL_PASSWORD"`
	RutbahPassword string `env:"MEFIL_RUTBAH_PASSWORD"`

	RedisAddr     string `env:"MEFIL_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"MEFIL_REDIS_PASSWORD"`
	RedisDB       int    `env:"MEFIL_REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"MEFIL_REDIS_PREFIX" envDefault:"mefil"`

	DatabaseDSN string `env:"MEFIL_DATABASE_DSN" envDefault:"mefil.db"`

	PomodoroSeconds int    `env:"MEFIL_POMODORO_SECONDS" envDefault:"1500"`
	BossName        string `env:"MEFIL_BOSS_NAME" envDefault:"The DBMS Final"`
	BossMaxHP       int    `env:"MEFIL_BOSS_MAX_HP" envDefault:"500"`
	TeamMaxHP       int    `env:"MEFIL_TEAM_MAX_HP" envDefault:"100"`
	AttackDamage    int    `env:"MEFIL_ATTACK_DAMAGE" envDefault:"25"`
	DistractDamage  int    `env:"MEFIL_DISTRACT_DAMAGE" envDefault:"20"`

	NotifyEnabled bool `env:"MEFIL_NOTIFY_ENABLED" envDefault:"true"`

	APIRateLimitRPM  int `env:"MEFIL_API_RATE_LIMIT_RPM" envDefault:"600"`
	AuthRateLimitRPM int `env:"MEFIL_AUTH_RATE_LIMIT_RPM" envDefault:"30"`

	ShutdownTimeout              time.Duration `env:"MEFIL_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	ShutdownHTTPDrainTimeout     time.Duration `env:"MEFIL_SHUTDOWN_HTTP_DRAIN_TIMEOUT" envDefault:"10s"`
	ShutdownObservabilityTimeout time.Duration `env:"MEFIL_SHUTDOWN_OBSERVABILITY_TIMEOUT" envDefault:"5s"`

	OTELEnabled               bool          `env:"OTEL_ENABLED" envDefault:"false"`
	OTELServiceName           string        `env:"OTEL_SERVICE_NAME" envDefault:"mefil"`
	OTELEnvironment           string        `env:"OTEL_ENVIRONMENT" envDefault:"dev"`
	OTELExporterOTLPEndpoint  string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTELExporterOTLPInsecure  bool          `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	OTELMetricsExportInterval time.Duration `env:"OTEL_METRICS_EXPORT_INTERVAL" envDefault:"15s"`
}

// Load parses the environment and validates the result. Login secrets are
// validated lazily by the auth layer so a read-only deployment can still
// boot without them.
func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "failure", classifyConfigLoadError(err))
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "failure", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(ctx, cfg.Profile, "success", "none")
	return cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	if c.SessionSecret == "" {
		problems = append(problems, "MEFIL_SESSION_SECRET is required")
	} else if len(c.SessionSecret) < 32 {
		problems = append(problems, "MEFIL_SESSION_SECRET must be at least 32 bytes")
	}
	if c.PomodoroSeconds <= 0 {
		problems = append(problems, "MEFIL_POMODORO_SECONDS must be positive")
	}
	if c.BossMaxHP <= 0 {
		problems = append(problems, "MEFIL_BOSS_MAX_HP must be positive")
	}
	if c.TeamMaxHP <= 0 {
		problems = append(problems, "MEFIL_TEAM_MAX_HP must be positive")
	}
	if c.AttackDamage <= 0 {
		problems = append(problems, "MEFIL_ATTACK_DAMAGE must be positive")
	}
	if c.DistractDamage <= 0 {
		problems = append(problems, "MEFIL_DISTRACT_DAMAGE must be positive")
	}
	if c.SessionTTL <= 0 {
		problems = append(problems, "MEFIL_SESSION_TTL must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("validate config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// RolePassword returns the configured secret for a role identifier, or the
// empty string when the identifier is not one of the two roles.
func (c *Config) RolePassword(role string) string {
	switch role {
	case "belal":
		return c.BelalPassword
	case "rutbah":
		return c.RutbahPassword
	default:
		return ""
	}
}

// PostgresDSN reports whether the configured DSN targets postgres rather
// than an sqlite file.
func (c *Config) PostgresDSN() bool {
	return strings.HasPrefix(c.DatabaseDSN, "postgres://") || strings.HasPrefix(c.DatabaseDSN, "host=")
}
