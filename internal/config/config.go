// Package config loads the service configuration from defaults, an optional
// YAML file and FOCUS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrConfiguration wraps every load or validation failure.
var ErrConfiguration = errors.New("configuration error")

const envPrefix = "FOCUS"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Model    ModelConfig    `mapstructure:"model"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"            validate:"required"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"    validate:"min=1s"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"   validate:"min=1s"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"         validate:"oneof=sqlite postgres"`
	DSN          string `mapstructure:"dsn"            validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"min=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// AuthConfig enables bearer-token auth on /api routes when Secret is set.
type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl" validate:"min=1m"`
}

type ModelConfig struct {
	Path         string        `mapstructure:"path"          validate:"required"`
	Version      string        `mapstructure:"version"       validate:"required,max=50"`
	Lookback     time.Duration `mapstructure:"lookback"      validate:"min=24h"`
	RetrainEvery int           `mapstructure:"retrain_every" validate:"min=1"`
	Trees        int           `mapstructure:"trees"         validate:"min=1,max=1000"`
	MaxDepth     int           `mapstructure:"max_depth"     validate:"min=1,max=64"`
	Seed         int64         `mapstructure:"seed"`
}

type JobsConfig struct {
	Timezone        string        `mapstructure:"timezone"          validate:"required"`
	Retention       time.Duration `mapstructure:"retention"         validate:"min=24h"`
	GenerateOnStart bool          `mapstructure:"generate_on_start"`
	SyntheticData   JobSchedule   `mapstructure:"synthetic_data"`
	Prune           JobSchedule   `mapstructure:"prune"`
	Maintenance     JobSchedule   `mapstructure:"db_maintenance"`
}

// JobSchedule is a cron expression (5 fields) plus an on/off switch.
type JobSchedule struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// Schedules returns the job schedules keyed by the names the job registry uses.
func (j JobsConfig) Schedules() map[string]JobSchedule {
	return map[string]JobSchedule{
		"synthetic_data": j.SyntheticData,
		"prune":          j.Prune,
		"db_maintenance": j.Maintenance,
	}
}

// Load reads configuration from path (or ./config.yaml when path is empty),
// applies FOCUS_* environment overrides and validates the result.
// A missing config.yaml is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read config: %v", ErrConfiguration, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks struct constraints and the job timezone.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if _, err := time.LoadLocation(c.Jobs.Timezone); err != nil {
		return fmt.Errorf("%w: jobs.timezone: %v", ErrConfiguration, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "focus.db")
	v.SetDefault("database.max_open_conns", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", 30*24*time.Hour)

	v.SetDefault("model.path", "focus_model.json")
	v.SetDefault("model.version", "v1.0")
	v.SetDefault("model.lookback", 14*24*time.Hour)
	v.SetDefault("model.retrain_every", 10)
	v.SetDefault("model.trees", 100)
	v.SetDefault("model.max_depth", 10)
	v.SetDefault("model.seed", 42)

	v.SetDefault("jobs.timezone", "UTC")
	v.SetDefault("jobs.retention", 14*24*time.Hour)
	v.SetDefault("jobs.generate_on_start", true)
	v.SetDefault("jobs.synthetic_data.enabled", true)
	v.SetDefault("jobs.synthetic_data.schedule", "0 2 * * *")
	v.SetDefault("jobs.prune.enabled", true)
	v.SetDefault("jobs.prune.schedule", "30 3 * * *")
	v.SetDefault("jobs.db_maintenance.enabled", false)
	v.SetDefault("jobs.db_maintenance.schedule", "0 4 * * 0")
}
