package config

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultInterface      = "eth0"
	DefaultSourceIP       = "192.168.1.254"
	DefaultCaptureTimeout = 10
	DefaultAdvertInterval = 1000
	DefaultPriority       = 250
	DefaultLogLevel       = "info"
)

type Config struct {
	Interface string `yaml:"interface"`
	// SourceIP is the IPv4 source of forged advertisements.
	SourceIP          string `yaml:"source_ip"`
	CaptureTimeoutSec int    `yaml:"capture_timeout_sec"`
	AdvertIntervalMs  int    `yaml:"advert_interval_ms"`
	Priority          int    `yaml:"priority"`
	LogLevel          string `yaml:"log_level"`

	source netip.Addr
}

func Default() *Config {
	c := &Config{}
	_ = c.Validate()
	return c
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate fills defaults and rejects values the attack cannot run with.
func (c *Config) Validate() error {
	if c.Interface == "" {
		c.Interface = DefaultInterface
	}
	if c.SourceIP == "" {
		c.SourceIP = DefaultSourceIP
	}
	ip, err := netip.ParseAddr(c.SourceIP)
	if err != nil || !ip.Unmap().Is4() {
		return fmt.Errorf("source_ip %q must be IPv4", c.SourceIP)
	}
	c.source = ip.Unmap()

	if c.CaptureTimeoutSec < 0 {
		return fmt.Errorf("capture_timeout_sec must not be negative")
	}
	if c.CaptureTimeoutSec == 0 {
		c.CaptureTimeoutSec = DefaultCaptureTimeout
	}
	if c.AdvertIntervalMs < 0 {
		return fmt.Errorf("advert_interval_ms must not be negative")
	}
	if c.AdvertIntervalMs == 0 {
		c.AdvertIntervalMs = DefaultAdvertInterval
	}
	if c.Priority == 0 {
		c.Priority = DefaultPriority
	}
	if c.Priority < 1 || c.Priority > 254 {
		return fmt.Errorf("priority %d out of range 1-254", c.Priority)
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	return nil
}

// Source is the parsed SourceIP; valid after Validate.
func (c *Config) Source() netip.Addr { return c.source }

func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.CaptureTimeoutSec) * time.Second
}

func (c *Config) AdvertInterval() time.Duration {
	return time.Duration(c.AdvertIntervalMs) * time.Millisecond
}
