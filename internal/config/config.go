// Package config loads pacto settings from defaults, an optional YAML file
// and PACTO_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "pacto"

type Config struct {
	BindAddr string `yaml:"bindAddr" envconfig:"BIND_ADDR"`
	Port     uint   `yaml:"port"     envconfig:"PORT"`
	DBPath   string `yaml:"dbPath"   envconfig:"DB_PATH"`

	LogLevel  string `yaml:"logLevel"  envconfig:"LOG_LEVEL"`
	LogFormat string `yaml:"logFormat" envconfig:"LOG_FORMAT"`

	JWTSecret string `yaml:"jwtSecret" envconfig:"JWT_SECRET"`
	JWTIssuer string `yaml:"jwtIssuer" envconfig:"JWT_ISSUER"`

	TimeZone     string        `yaml:"timeZone"     envconfig:"TIME_ZONE"`
	ScanInterval time.Duration `yaml:"scanInterval" envconfig:"SCAN_INTERVAL"`
	InviteTTL    time.Duration `yaml:"inviteTTL"    envconfig:"INVITE_TTL"`

	ExpoEndpoint    string `yaml:"expoEndpoint"    envconfig:"EXPO_ENDPOINT"`
	ExpoAccessToken string `yaml:"expoAccessToken" envconfig:"EXPO_ACCESS_TOKEN"`
	VAPIDPublicKey  string `yaml:"vapidPublicKey"  envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `yaml:"vapidPrivateKey" envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDSubscriber string `yaml:"vapidSubscriber" envconfig:"VAPID_SUBSCRIBER"`
	NotifyQueueSize int    `yaml:"notifyQueueSize" envconfig:"NOTIFY_QUEUE_SIZE"`

	RateLimitPerMinute int `yaml:"rateLimitPerMinute" envconfig:"RATE_LIMIT_PER_MINUTE"`
	RateLimitBurst     int `yaml:"rateLimitBurst"     envconfig:"RATE_LIMIT_BURST"`

	MetricsEnabled  bool          `yaml:"metricsEnabled"  envconfig:"METRICS_ENABLED"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		BindAddr:           "",
		Port:               8080,
		DBPath:             "pacto.db",
		LogLevel:           "info",
		LogFormat:          "text",
		TimeZone:           "UTC",
		ScanInterval:       5 * time.Minute,
		InviteTTL:          7 * 24 * time.Hour,
		ExpoEndpoint:       "https://exp.host/--/api/v2/push/send",
		NotifyQueueSize:    256,
		RateLimitPerMinute: 120,
		RateLimitBurst:     30,
		MetricsEnabled:     true,
		ShutdownTimeout:    10 * time.Second,
	}
}

// Load builds a Config. An empty configFile falls back to
// ~/.pacto/pacto.yaml and then /etc/pacto/pacto.yaml when they exist.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".pacto", "pacto.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/pacto/pacto.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

// ListenAddr is the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.Port)
}

// Location resolves TimeZone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.ScanInterval <= 0 {
		errs = append(errs, errors.New("scanInterval must be positive"))
	}
	if c.InviteTTL <= 0 {
		errs = append(errs, errors.New("inviteTTL must be positive"))
	}
	if c.NotifyQueueSize <= 0 {
		errs = append(errs, errors.New("notifyQueueSize must be positive"))
	}
	if c.RateLimitPerMinute < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, errors.New("rate limit settings must not be negative"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// ValidateServe adds the checks that only apply to the HTTP server.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return errors.New("jwtSecret is required")
	}
	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		return errors.New("vapidPublicKey and vapidPrivateKey must be set together")
	}
	return nil
}
