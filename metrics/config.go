package metrics

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	defaultMetricsPort    = 2112
	defaultMetricsHost    = "127.0.0.1"
	defaultUpdateInterval = 15 * time.Second
)

// Config defines the server's metric configuration
type Config struct {
	Enabled        bool          `koanf:"enabled" yaml:"enabled"`
	Host           string        `koanf:"host" yaml:"host"`
	Port           int           `koanf:"port" yaml:"port"`
	UpdateInterval time.Duration `koanf:"update_interval" yaml:"update_interval"`
}

func (cfg *Config) Validate() error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}

	ip := net.ParseIP(cfg.Host)
	if ip == nil {
		return fmt.Errorf("invalid host: %v", cfg.Host)
	}

	if cfg.UpdateInterval <= 0 {
		return fmt.Errorf("update interval must be positive, got %v", cfg.UpdateInterval)
	}

	return nil
}

func (cfg *Config) Address() (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), nil
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		Port:           defaultMetricsPort,
		Host:           defaultMetricsHost,
		UpdateInterval: defaultUpdateInterval,
	}
}
