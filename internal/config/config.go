package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cdr.dev/slog/v3"
	"cdr.dev/slog/v3/sloggers/sloghuman"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Cutover  CutoverConfig  `mapstructure:"cutover"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// Database drivers
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
	// Transactions requires a replica set. Standalone servers set it to false.
	Transactions bool `mapstructure:"transactions"`
}

// S3Config locates the bucket cutover reports are archived to. An empty BucketName
// disables archiving.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	ReportPrefix    string `mapstructure:"report_prefix"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// CutoverConfig controls the daily boundary and the job that closes it.
type CutoverConfig struct {
	Hour     int    `mapstructure:"hour"`
	Timezone string `mapstructure:"timezone"`
	Enabled  bool   `mapstructure:"enabled"`
}

// LimitsConfig holds the session ceilings. Zero disables a ceiling.
type LimitsConfig struct {
	MaxSession time.Duration `mapstructure:"max_session"`
	MaxDaily   time.Duration `mapstructure:"max_daily"`
}

// KafkaConfig enables archived-record events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SlogLevel maps Level to a slog level. Unknown values mean info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a human-readable logger writing to w at the configured level.
func (c LogConfig) NewLogger(w io.Writer) slog.Logger {
	return slog.Make(sloghuman.Sink(w)).Leveled(c.SlogLevel())
}

// Location resolves the cutover timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Cutover.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Cutover.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load cutover timezone %q: %w", c.Cutover.Timezone, err)
	}
	return loc, nil
}

// Validate reports configuration the application cannot start with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Cutover.Hour < 0 || c.Cutover.Hour > 23 {
		return fmt.Errorf("cutover hour %d out of range", c.Cutover.Hour)
	}
	if c.Limits.MaxSession < 0 || c.Limits.MaxDaily < 0 {
		return errors.New("limits must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS, cutover.hour -> CUTOVER_HOUR
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.driver", DriverMongo)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "exercise_tracker")
	v.SetDefault("database.transactions", true)
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.report_prefix", "cutover-reports/")
	v.SetDefault("jwt.expiration", "1h")
	v.SetDefault("cutover.hour", 3)
	v.SetDefault("cutover.timezone", "Asia/Seoul")
	v.SetDefault("cutover.enabled", true)
	v.SetDefault("limits.max_session", "8h")
	v.SetDefault("limits.max_daily", "12h")
	v.SetDefault("kafka.topic", "exercise.history.archived")
	v.SetDefault("log.level", "info")

	err = v.ReadInConfig()
	// A missing file is fine; defaults and env vars still apply
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	// Duration strings ("8h", "90m") decode straight into time.Duration fields
	err = v.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, config.Validate()
}
