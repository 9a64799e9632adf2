package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/farrukhll0/pigeon-management-system/internal/models"

	"github.com/spf13/viper"
)

// Supported DATABASE_DRIVER values.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config is the runtime configuration of the service.
type Config struct {
	AppPort string

	DatabaseDriver    string
	DatabaseDSN       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	JWTSecret string
	TokenTTL  time.Duration

	MaxImageBytes int
	BodyLimit     int

	RabbitMQURL   string
	RabbitMQQueue string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=pigeons port=5432 sslmode=disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 25)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", 24*time.Hour)
	v.SetDefault("MAX_IMAGE_BYTES", 5<<20)
	v.SetDefault("BODY_LIMIT", 0) // 0 derives the limit from MAX_IMAGE_BYTES
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_QUEUE", "pigeon_events")
}

// Load reads configuration from the environment and, when CONFIG_FILE is set,
// from that file. Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv() // Load environment variables

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}
	return FromViper(v)
}

// FromViper builds and validates a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:           v.GetString("APP_PORT"),
		DatabaseDriver:    strings.ToLower(strings.TrimSpace(v.GetString("DATABASE_DRIVER"))),
		DatabaseDSN:       v.GetString("DATABASE_DSN"),
		DBMaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		DBConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		JWTSecret:         strings.TrimSpace(v.GetString("JWT_SECRET")),
		TokenTTL:          v.GetDuration("TOKEN_TTL"),
		MaxImageBytes:     v.GetInt("MAX_IMAGE_BYTES"),
		BodyLimit:         v.GetInt("BODY_LIMIT"),
		RabbitMQURL:       strings.TrimSpace(v.GetString("RABBITMQ_URL")),
		RabbitMQQueue:     v.GetString("RABBITMQ_QUEUE"),
	}
	if cfg.BodyLimit == 0 {
		cfg.BodyLimit = MinBodyLimit(cfg.MaxImageBytes)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bodyHeadroom covers the JSON text around the inline images.
const bodyHeadroom = 1 << 20

// dataURLOverhead covers the "data:<mime>;base64," prefix of one image.
const dataURLOverhead = 64

// MinBodyLimit is the smallest request body that still fits a pigeon with
// every image slot filled at maxImageBytes, base64-encoded.
func MinBodyLimit(maxImageBytes int) int {
	if maxImageBytes <= 0 {
		return bodyHeadroom
	}
	encoded := (maxImageBytes+2)/3*4 + dataURLOverhead
	return models.MaxPigeonImages*encoded + bodyHeadroom
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver))
	}
	if c.MaxImageBytes <= 0 {
		errs = append(errs, errors.New("MAX_IMAGE_BYTES must be positive"))
	}
	if floor := MinBodyLimit(c.MaxImageBytes); c.BodyLimit < floor {
		errs = append(errs, fmt.Errorf("BODY_LIMIT must be at least %d bytes for MAX_IMAGE_BYTES=%d", floor, c.MaxImageBytes))
	}
	return errors.Join(errs...)
}
