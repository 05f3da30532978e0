package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	sslModeDisable = "disable"
	sslModeRequire = "require"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultJWTSecret = "bookmarker-development-secret"
)

type (
	Config struct {
		Host     string `mapstructure:"HOST"`
		Port     string `mapstructure:"PORT"`
		GRPCPort string `mapstructure:"GRPC_PORT"`
		Env      string `mapstructure:"ENV"`

		DBDriver   string `mapstructure:"DB_DRIVER"`
		DBHost     string `mapstructure:"DB_HOST"`
		DBPort     string `mapstructure:"DB_PORT"`
		DBUser     string `mapstructure:"DB_USER"`
		DBPassword string `mapstructure:"DB_PASSWORD"`
		DBName     string `mapstructure:"DB_NAME"`
		DBSSLMode  string `mapstructure:"DB_SSL_MODE"`
		DBPath     string `mapstructure:"DB_PATH"`

		JWTSecret string        `mapstructure:"JWT_SECRET"`
		JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

		MetadataTimeout   time.Duration `mapstructure:"METADATA_TIMEOUT"`
		MetadataUserAgent string        `mapstructure:"METADATA_USER_AGENT"`
	}
)

var envs = []string{
	"HOST", "PORT", "GRPC_PORT", "ENV",
	"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSL_MODE", "DB_PATH",
	"JWT_SECRET", "JWT_TTL",
	"METADATA_TIMEOUT", "METADATA_USER_AGENT",
}

func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOOKMARKER")

	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "1323")
	v.SetDefault("GRPC_PORT", "9000")
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "0.0.0.0")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "db")
	v.SetDefault("DB_SSL_MODE", sslModeDisable)
	v.SetDefault("DB_PATH", "bookmarker.db")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_TTL", 7*24*time.Hour)
	v.SetDefault("METADATA_TIMEOUT", 10*time.Second)
	v.SetDefault("METADATA_USER_AGENT", "Mozilla/5.0 (compatible; BookmarkManager/1.0)")

	for _, key := range envs {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// PostgresDSN builds the connection string for gorm.io/driver/postgres.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func validate(cfg *Config) error {
	if !oneOf(cfg.DBSSLMode, sslModeDisable, sslModeRequire) {
		return errors.New(fmt.Sprintf("DB SSL mode is invalid: %s", cfg.DBSSLMode))
	}
	if !oneOf(cfg.DBDriver, DriverPostgres, DriverSQLite) {
		return errors.New(fmt.Sprintf("DB driver is invalid: %s", cfg.DBDriver))
	}
	if !oneOf(cfg.Env, EnvDevelopment, EnvProduction) {
		return errors.New(fmt.Sprintf("env is invalid: %s", cfg.Env))
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT secret is empty")
	}
	if cfg.Env == EnvProduction && cfg.JWTSecret == defaultJWTSecret {
		return errors.New("JWT secret must be set in production")
	}
	if cfg.JWTTTL <= 0 {
		return errors.New(fmt.Sprintf("JWT TTL is invalid: %s", cfg.JWTTTL))
	}
	if cfg.MetadataTimeout <= 0 {
		return errors.New(fmt.Sprintf("metadata timeout is invalid: %s", cfg.MetadataTimeout))
	}
	return nil
}

func oneOf(value string, valid ...string) bool {
	for _, v := range valid {
		if value == v {
			return true
		}
	}
	return false
}
