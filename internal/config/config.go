package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "github.com/applesandbeer/weatherisafog/internal/errors"
)

const (
	// EnvPrefix namespaces every application variable except the DB_* ones.
	EnvPrefix = "WEATHERISAFOG"
	// DatabaseEnvPrefix namespaces the database connection variables.
	DatabaseEnvPrefix = "DB"
	// ConfigFileEnv names the variable that points at an optional YAML file.
	ConfigFileEnv = "WEATHERISAFOG_CONFIG_FILE"

	DefaultEnvFile    = ".env"
	DefaultConfigFile = "config.yaml"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents the complete application configuration
//
// Environment keys are derived from field names only (no envconfig aliases),
// so unprefixed variables such as USER or HOST are never picked up.
type Config struct {
	Database    DatabaseConfig  `yaml:"database" ignored:"true"`
	StockFile   string          `yaml:"stock_file" split_words:"true" validate:"required"`
	WeatherFile string          `yaml:"weather_file" split_words:"true" validate:"required"`
	Logging     LoggingConfig   `yaml:"logging"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
}

// DatabaseConfig holds the connection settings of the target database, read
// from DB_DRIVER, DB_NAME, DB_USER, DB_PASSWORD, DB_HOST, DB_PORT and
// DB_SSLMODE. For the sqlite driver Name is the database file path and the
// network settings are ignored.
type DatabaseConfig struct {
	Driver   string `yaml:"driver" validate:"oneof=postgres sqlite"`
	Name     string `yaml:"name" validate:"required"`
	User     string `yaml:"user" validate:"required_if=Driver postgres"`
	Password string `yaml:"password"`
	Host     string `yaml:"host" validate:"required_if=Driver postgres"`
	Port     int    `yaml:"port" validate:"min=1,max=65535"`
	SSLMode  string `yaml:"sslmode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" split_words:"true" validate:"required_unless=Output console"`
}

// TelemetryConfig controls tracing and metrics export.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" split_words:"true" validate:"required"`
	Traces      string `yaml:"traces" validate:"oneof=none stdout"`
	MetricsFile string `yaml:"metrics_file" split_words:"true"`
}

// DataSourceName returns the driver-specific connection string.
func (c DatabaseConfig) DataSourceName() string {
	if c.Driver == DriverSQLite {
		return c.Name
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		Path:   "/" + c.Name,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// LogValue keeps the password out of log records.
func (c DatabaseConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("driver", c.Driver),
		slog.String("name", c.Name),
		slog.String("user", c.User),
		slog.String("host", c.Host),
		slog.Int("port", c.Port),
	)
}

// Load reads configuration from ./.env, the process environment and the
// YAML file named by WEATHERISAFOG_CONFIG_FILE (or ./config.yaml when present).
func Load() (*Config, error) {
	return LoadFiles(DefaultEnvFile, os.Getenv(ConfigFileEnv))
}

// LoadFiles is Load with explicit file locations. A missing envFile is
// ignored; a configFile that was named explicitly must exist.
//
// Precedence, lowest first: Default, YAML file, environment.
func LoadFiles(envFile, configFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewConfigError(fmt.Sprintf("failed to read %s", envFile), err)
		}
	}

	cfg := Default()

	if configFile == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			configFile = DefaultConfigFile
		}
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).
				WithContext("path", configFile)
		}
	}

	if err := envconfig.Process(DatabaseEnvPrefix, &cfg.Database); err != nil {
		return nil, apperrors.NewConfigError("failed to load database config from env", err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays the YAML document onto cfg. Keys absent from the
// document keep their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Output = strings.ToLower(strings.TrimSpace(c.Logging.Output))
	c.Telemetry.Traces = strings.ToLower(strings.TrimSpace(c.Telemetry.Traces))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags and reports every failing field in one
// CONFIG error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewConfigError("config validation failed", err)
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, describeFieldError(fe))
	}
	return apperrors.NewConfigError("config validation failed: "+strings.Join(fields, "; "), err).
		WithContext("fields", fields)
}

func describeFieldError(fe validator.FieldError) string {
	// Config.Database.User -> Database.User
	name := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return name + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", name, fe.Param(), fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed %s=%s", name, fe.Tag(), fe.Param())
	}
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:  DriverPostgres,
			Port:    5432,
			SSLMode: "disable",
		},
		StockFile:   "stock_data.xlsx",
		WeatherFile: "weather_data.xlsx",
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/weatherisafog.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "weatherisafog",
			Traces:      "none",
		},
	}
}
