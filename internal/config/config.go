// Package config loads the bridge configuration from an optional YAML file,
// an optional .env file and EXAM_BRIDGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"exam-bridge/internal/directory"
)

const envPrefix = "EXAM_BRIDGE"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Log      LogConfig      `mapstructure:"log"`
	Env      string         `mapstructure:"env"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr" validate:"required"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type UpstreamConfig struct {
	DirectoryURL       string        `mapstructure:"directory_url" validate:"required,url"`
	Scheme             string        `mapstructure:"scheme" validate:"oneof=http https"`
	Timeout            time.Duration `mapstructure:"timeout" validate:"gt=0"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":15147")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("upstream.directory_url", directory.DefaultEndpoint)
	v.SetDefault("upstream.scheme", "https")
	v.SetDefault("upstream.timeout", 10*time.Second)
	v.SetDefault("upstream.insecure_skip_verify", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("env", "development")
}

// Load reads configFile when given. A missing .env is not an error.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// AllowsAnyOrigin reports whether CORS should be fully open.
func (c *Config) AllowsAnyOrigin() bool {
	for _, o := range c.Server.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("config validation failed: %w", err)
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		if e.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", e.Namespace(), e.Tag(), e.Param(), e.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", e.Namespace(), e.Tag()))
		}
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
}
