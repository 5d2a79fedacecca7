package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CHATD_"

// holds parsed command-line flag values and which were set
type Flags struct {
	Config   string
	Addr     string
	Node     string
	LogLevel string
	Set      map[string]bool
}

// holds the result of LoadEffectiveConfig
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	// Sources lists the layers that contributed, lowest precedence first.
	Sources []string
}

// Source renders Sources for logs and the banner.
func (e EffectiveConfigResult) Source() string {
	if len(e.Sources) == 0 {
		return "defaults"
	}
	return strings.Join(e.Sources, "+")
}

// envOverrides mirrors the settings that can come from the environment.
// nil means unset.
type envOverrides struct {
	NodeName      *string           `env:"NODE_NAME"`
	NodeProcess   *string           `env:"NODE_PROCESS"`
	ServerAddress *string           `env:"SERVER_ADDRESS"`
	ServerPort    *int              `env:"SERVER_PORT"`
	MaxBodySize   *string           `env:"SERVER_MAX_BODY_SIZE"`
	ReadTimeout   *time.Duration    `env:"SERVER_READ_TIMEOUT"`
	WriteTimeout  *time.Duration    `env:"SERVER_WRITE_TIMEOUT"`
	RateRPS       *float64          `env:"RATE_RPS"`
	RateBurst     *int              `env:"RATE_BURST"`
	DialTimeout   *time.Duration    `env:"DIAL_TIMEOUT"`
	Peers         map[string]string `env:"PEERS" envKeyValSeparator:"="`
	ProbeEnabled  *bool             `env:"PROBE_ENABLED"`
	ProbeCron     *string           `env:"PROBE_CRON"`
	ProbeTimeout  *time.Duration    `env:"PROBE_TIMEOUT"`
	LogLevel      *string           `env:"LOG_LEVEL"`
	LogFormat     *string           `env:"LOG_FORMAT"`
}

// parses command-line flags from args (without the program name)
func ParseConfigFlags(args []string, output io.Writer) (Flags, error) {
	fset := flag.NewFlagSet("chatd", flag.ContinueOnError)
	fset.SetOutput(output)
	cfgPtr := fset.String("config", "./config.yaml", "Path to config file")
	addrPtr := fset.String("addr", "", "HTTP listen address (host:port)")
	nodePtr := fset.String("node", "", "Node name")
	levelPtr := fset.String("log-level", "", "Log level: debug, info, warn, error")
	if err := fset.Parse(args); err != nil {
		return Flags{}, err
	}

	// record which flags were set explicitly
	set := make(map[string]bool)
	fset.Visit(func(f *flag.Flag) { set[f.Name] = true })

	return Flags{Config: *cfgPtr, Addr: *addrPtr, Node: *nodePtr, LogLevel: *levelPtr, Set: set}, nil
}

// LoadEffectiveConfig layers defaults, the config file, environment
// overrides and flags, in increasing precedence, then validates. A missing
// config file is only an error when --config was given explicitly.
func LoadEffectiveConfig(flags Flags, environ map[string]string) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult

	cfg, err := LoadConfigFile(flags.Config)
	switch {
	case err == nil:
		res.Sources = append(res.Sources, "file")
	case errors.Is(err, fs.ErrNotExist) && !flags.Set["config"]:
		cfg = &Config{}
	default:
		return res, fmt.Errorf("load config file: %w", err)
	}

	used, err := applyEnv(cfg, environ)
	if err != nil {
		return res, err
	}
	if used {
		res.Sources = append(res.Sources, "env")
	}

	if applyFlags(cfg, flags) {
		res.Sources = append(res.Sources, "flags")
	}

	if err := cfg.ValidateConfig(); err != nil {
		return res, err
	}
	res.Config = cfg
	res.Addr = cfg.Addr()
	return res, nil
}

// applyEnv copies every set CHATD_ variable onto cfg and reports whether
// any was set.
func applyEnv(cfg *Config, environ map[string]string) (bool, error) {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return false, fmt.Errorf("parse environment: %w", err)
	}

	used := false
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
			used = true
		}
	}
	setDuration := func(dst *Duration, v *time.Duration) {
		if v != nil {
			*dst = Duration(*v)
			used = true
		}
	}

	setString(&cfg.Node.Name, o.NodeName)
	setString(&cfg.Node.Process, o.NodeProcess)
	setString(&cfg.Server.Address, o.ServerAddress)
	if o.ServerPort != nil {
		cfg.Server.Port = *o.ServerPort
		used = true
	}
	if o.MaxBodySize != nil {
		size, err := parseSizeBytes(*o.MaxBodySize)
		if err != nil {
			return false, fmt.Errorf("%sSERVER_MAX_BODY_SIZE: %w", EnvPrefix, err)
		}
		cfg.Server.MaxBodySize = size
		used = true
	}
	setDuration(&cfg.Server.ReadTimeout, o.ReadTimeout)
	setDuration(&cfg.Server.WriteTimeout, o.WriteTimeout)
	if o.RateRPS != nil {
		cfg.Transport.RateLimit.RPS = *o.RateRPS
		used = true
	}
	if o.RateBurst != nil {
		cfg.Transport.RateLimit.Burst = *o.RateBurst
		used = true
	}
	setDuration(&cfg.Transport.DialTimeout, o.DialTimeout)
	if len(o.Peers) > 0 {
		if cfg.Peers == nil {
			cfg.Peers = make(map[string]string, len(o.Peers))
		}
		for name, url := range o.Peers {
			cfg.Peers[strings.TrimSpace(name)] = strings.TrimSpace(url)
		}
		used = true
	}
	if o.ProbeEnabled != nil {
		cfg.Probe.Enabled = *o.ProbeEnabled
		used = true
	}
	setString(&cfg.Probe.Cron, o.ProbeCron)
	setDuration(&cfg.Probe.Timeout, o.ProbeTimeout)
	setString(&cfg.Logging.Level, o.LogLevel)
	setString(&cfg.Logging.Format, o.LogFormat)
	return used, nil
}

func applyFlags(cfg *Config, flags Flags) bool {
	used := false
	if flags.Set["addr"] {
		host, port := splitAddr(flags.Addr)
		if host != "" {
			cfg.Server.Address = host
		}
		if port != 0 {
			cfg.Server.Port = port
		}
		used = true
	}
	if flags.Set["node"] {
		cfg.Node.Name = flags.Node
		used = true
	}
	if flags.Set["log-level"] {
		cfg.Logging.Level = flags.LogLevel
		used = true
	}
	return used
}

// splits host:port; a bare ":port" leaves host empty
func splitAddr(a string) (string, int) {
	host, p, err := net.SplitHostPort(a)
	if err != nil {
		return a, 0
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return host, 0
	}
	return host, port
}
