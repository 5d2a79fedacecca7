package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"chatd/pkg/address"

	"github.com/adhocore/gronx"
	"gopkg.in/yaml.v3"
)

const (
	defaultProcess      = "chat:chat:template.os"
	defaultAddress      = "0.0.0.0"
	defaultPort         = 8080
	defaultMaxBodySize  = 1 << 20 // 1 MiB
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultRateRPS      = 50
	defaultRateBurst    = 100
	defaultDialTimeout  = 2 * time.Second
	defaultProbeCron    = "*/1 * * * *"
	defaultProbeTimeout = 2 * time.Second
	defaultLogLevel     = "info"
	defaultLogFormat    = "text"
)

// Addr returns the HTTP server address as host:port.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = defaultAddress
	}
	port := c.Server.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// Identity is the address of the chat process this node hosts.
func (c *Config) Identity() address.Address {
	return address.Address{Node: c.Node.Name, Process: address.ParseProcessID(c.Node.Process)}
}

// LoadConfigFile reads and parses a config file.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// ValidateConfig fills in defaults and reports every invalid value.
func (c *Config) ValidateConfig() error {
	c.applyDefaults()

	var errs []error
	name := strings.TrimSpace(c.Node.Name)
	switch {
	case name == "":
		errs = append(errs, errors.New("node.name is required"))
	case strings.ContainsAny(name, "@:/ "):
		errs = append(errs, fmt.Errorf("node.name %q must not contain '@', ':', '/' or spaces", name))
	}
	pid := address.ParseProcessID(c.Node.Process)
	if pid.Process == "" || pid.Package == "" || pid.Publisher == "" {
		errs = append(errs, fmt.Errorf("node.process %q must be process:package:publisher", c.Node.Process))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxBodySize < 0 {
		errs = append(errs, errors.New("server.max_body_size must not be negative"))
	}
	if c.Transport.RateLimit.RPS < 0 || c.Transport.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("transport.rate_limit values must not be negative"))
	}
	for peer, url := range c.Peers {
		if peer == name {
			errs = append(errs, fmt.Errorf("peers.%s names this node", peer))
		}
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			errs = append(errs, fmt.Errorf("peers.%s: %q is not an http(s) URL", peer, url))
		}
	}
	if c.Probe.Enabled && !gronx.New().IsValid(c.Probe.Cron) {
		errs = append(errs, fmt.Errorf("probe.cron %q is not a valid cron expression", c.Probe.Cron))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be text or json", c.Logging.Format))
	}
	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	c.Node.Name = strings.TrimSpace(c.Node.Name)
	if c.Node.Process == "" {
		c.Node.Process = defaultProcess
	}
	if c.Server.Address == "" {
		c.Server.Address = defaultAddress
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.MaxBodySize == 0 {
		c.Server.MaxBodySize = defaultMaxBodySize
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(defaultReadTimeout)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(defaultWriteTimeout)
	}
	if c.Transport.RateLimit.RPS == 0 && c.Transport.RateLimit.Burst == 0 {
		c.Transport.RateLimit = RateLimitConfig{RPS: defaultRateRPS, Burst: defaultRateBurst}
	}
	if c.Transport.DialTimeout == 0 {
		c.Transport.DialTimeout = Duration(defaultDialTimeout)
	}
	if c.Peers == nil {
		c.Peers = map[string]string{}
	}
	if c.Probe.Cron == "" {
		c.Probe.Cron = defaultProbeCron
	}
	if c.Probe.Timeout == 0 {
		c.Probe.Timeout = Duration(defaultProbeTimeout)
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
