package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"fittrack/backend/internal/clock"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Policy   PolicyConfig   `mapstructure:"policy"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"` // gin mode: debug, release or test
}

// Database drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
}

// S3Config points at the bucket holding archived assignment history. An
// empty BucketName disables archiving.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
}

// Enabled reports whether an archive bucket is configured.
func (c S3Config) Enabled() bool { return c.BucketName != "" }

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
	// Expiration is the lifetime of tokens minted by the token command.
	Expiration time.Duration `mapstructure:"expiration"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// PolicyConfig tunes the entitlement engine.
type PolicyConfig struct {
	// Timezone is the IANA zone in which plan days are counted.
	Timezone           string `mapstructure:"timezone"`
	MaxConflictRetries int    `mapstructure:"max_conflict_retries"`
}

// LoadConfig reads configuration from path/config.yaml and environment
// variables (server.address -> SERVER_ADDRESS). A .env file in the working
// directory is loaded into the environment first when present.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))
	setDefaults(v)

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", DriverMongo)
	v.SetDefault("database.uri", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("database.name", "fittrack")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "fittrack")
	v.SetDefault("jwt.expiration", "1h")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("policy.timezone", "UTC")
	v.SetDefault("policy.max_conflict_retries", 3)
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Server.Mode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	switch c.Database.Driver {
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverMongo, DriverMemory, c.Database.Driver)
	}
	if c.Database.Driver == DriverMongo && c.Database.URI == "" {
		return errors.New("database.uri is required for the mongo driver")
	}
	if c.Policy.MaxConflictRetries < 0 {
		return errors.New("policy.max_conflict_retries must not be negative")
	}
	if _, err := clock.LoadLocation(c.Policy.Timezone); err != nil {
		return fmt.Errorf("policy.timezone: %w", err)
	}
	return nil
}
