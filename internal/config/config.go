package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// JWTSigningKey is the HMAC key for bearer tokens. Required outside
	// development; in development the permissive middleware is used instead.
	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`

	// Scanner tuning.
	OverdueScanInterval    time.Duration `mapstructure:"OVERDUE_SCAN_INTERVAL"`
	HealthScoreInterval    time.Duration `mapstructure:"HEALTH_SCORE_INTERVAL"`
	MetricsInterval        time.Duration `mapstructure:"METRICS_INTERVAL"`
	VitalsOverdueHours     int           `mapstructure:"VITALS_OVERDUE_HOURS"`
	IncidentTimeoutMinutes int           `mapstructure:"INCIDENT_TIMEOUT_MINUTES"`
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
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("OVERDUE_SCAN_INTERVAL", "30m")
	v.SetDefault("HEALTH_SCORE_INTERVAL", "1h")
	v.SetDefault("METRICS_INTERVAL", "5m")
	v.SetDefault("VITALS_OVERDUE_HOURS", 8)
	v.SetDefault("INCIDENT_TIMEOUT_MINUTES", 5)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("JWT_SIGNING_KEY")
	v.BindEnv("OVERDUE_SCAN_INTERVAL")
	v.BindEnv("HEALTH_SCORE_INTERVAL")
	v.BindEnv("METRICS_INTERVAL")
	v.BindEnv("VITALS_OVERDUE_HOURS")
	v.BindEnv("INCIDENT_TIMEOUT_MINUTES")

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

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: ============================================================")
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

// Validate checks that the configuration is safe to run. Outside development
// a JWT signing key must be set so actor identity on incident operations is
// trustworthy, and the scanner intervals must be positive.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSigningKey == "" {
		return fmt.Errorf(
			"JWT_SIGNING_KEY must be set when ENV=%q; refusing to start without authentication configuration", c.Env)
	}
	if c.OverdueScanInterval <= 0 || c.HealthScoreInterval <= 0 || c.MetricsInterval <= 0 {
		return fmt.Errorf("scanner intervals must be positive")
	}
	if c.VitalsOverdueHours <= 0 {
		return fmt.Errorf("VITALS_OVERDUE_HOURS must be positive, got %d", c.VitalsOverdueHours)
	}
	if c.IncidentTimeoutMinutes <= 0 {
		return fmt.Errorf("INCIDENT_TIMEOUT_MINUTES must be positive, got %d", c.IncidentTimeoutMinutes)
	}
	return nil
}
