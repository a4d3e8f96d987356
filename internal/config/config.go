// Package config handles application configuration using Viper.
// Viper supports YAML files, environment variables, and defaults — merged in priority order.
// Go convention: configuration is loaded into structs, not accessed as raw key-value pairs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration struct. Nested structs organize related settings.
// `mapstructure` tags tell Viper how to map YAML/env keys to struct fields.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// ContextPath is the prefix the embedded app is mounted under, e.g. "/app".
	ContextPath string `mapstructure:"context_path"`
	// TrustedProxies lists the IPs/CIDRs whose X-Forwarded-For is believed.
	// Empty means trust none: the client is the connection's remote address.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// UpstreamConfig points at the application the gateway fronts.
// An empty URL means no proxying: only the gateway's own routes answer.
type UpstreamConfig struct {
	URL string `mapstructure:"url"`
}

type CORSConfig struct {
	// Origins is a comma-separated list, e.g. "https://a.com, https://b.com".
	Origins        string `mapstructure:"origins"`
	PropertiesFile string `mapstructure:"properties_file"`
	SessionCookie  string `mapstructure:"session_cookie"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from a YAML file and environment variables.
// A .env file in the working directory, if any, is loaded into the
// environment first.
func Load(configPath string) (*Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults — these apply when neither file nor env provides a value
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.context_path", "")
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("upstream.url", "")
	v.SetDefault("cors.origins", "")
	v.SetDefault("cors.properties_file", "cors.properties")
	v.SetDefault("cors.session_cookie", "JSESSIONID")
	v.SetDefault("rate_limit.requests_per_second", 0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("log.level", "info")

	// Read from YAML config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Read config file (ignore "not found" — defaults + env are enough)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && configPath != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Environment variables override everything.
	// CROSSSITE_ prefix + nested keys: CROSSSITE_CORS_ORIGINS=... → cors.origins
	v.SetEnvPrefix("CROSSSITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// OriginValues returns the key/value mapping the origin registry reads.
// "origins" comes from cors.origins, and an "origins" entry in the properties
// file (origins=https://a.com,https://b.com) takes precedence.
//
// The mapping is always usable: when the properties file exists but cannot be
// read, the error is returned alongside it so the caller can log it and carry on.
func OriginValues(cfg *Config) (map[string]string, error) {
	values := map[string]string{"origins": cfg.CORS.Origins}

	path := cfg.CORS.PropertiesFile
	if path == "" {
		return values, nil
	}

	props, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return values, fmt.Errorf("reading %s: %w", path, err)
	}
	for k, val := range props {
		if k == "origins" && val == "" {
			continue
		}
		values[k] = val
	}
	return values, nil
}

// Address returns the listen address string like "0.0.0.0:8080".
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
