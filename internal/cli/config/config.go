package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conduit-lang/metagate/internal/rpc"
)

// EnvPrefix prefixes every environment override, e.g. METAGATE_SERVER_PORT
const EnvPrefix = "METAGATE"

// Config represents the metagate configuration
type Config struct {
	Server      ServerConfig           `mapstructure:"server"`
	Log         LogConfig              `mapstructure:"log"`
	Auth        AuthConfig             `mapstructure:"auth"`
	Runtime     RuntimeConfig          `mapstructure:"runtime"`
	MetadataDir string                 `mapstructure:"metadata_dir"`
	Metadata    map[string]interface{} `mapstructure:"metadata"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig configures bearer token decoding. An empty secret disables it.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RuntimeConfig holds the settings consumed by generated handlers
type RuntimeConfig struct {
	BaseURL            string                       `mapstructure:"base_url"`
	DocumentationURL   string                       `mapstructure:"documentation_url"`
	ExcludeQueryString []string                     `mapstructure:"exclude_query_string"`
	Claims             []string                     `mapstructure:"claims"`
	DefaultService     rpc.ServiceConfig            `mapstructure:"default_service"`
	Services           map[string]rpc.ServiceConfig `mapstructure:"services"`
}

// Load reads configuration from path, or from metagate.yaml in the working
// directory or /etc/metagate when path is empty. Environment variables
// override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("metagate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/metagate")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("runtime.base_url", "")
	v.SetDefault("runtime.documentation_url", "")
	v.SetDefault("runtime.exclude_query_string", []string{"token", "access_token"})
	v.SetDefault("runtime.claims", []string{})
	v.SetDefault("runtime.default_service.network", "tcp")
	v.SetDefault("metadata_dir", "metadata")
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", cfg.Server.Port)
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got: %s", cfg.Log.Format)
	}
	if cfg.Runtime.BaseURL != "" {
		u, err := url.Parse(cfg.Runtime.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("runtime.base_url must be an absolute URL, got: %s", cfg.Runtime.BaseURL)
		}
		if strings.HasSuffix(cfg.Runtime.BaseURL, "/") {
			return fmt.Errorf("runtime.base_url must not end with '/', got: %s", cfg.Runtime.BaseURL)
		}
	}
	return nil
}
