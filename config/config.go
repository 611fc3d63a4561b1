package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTTL             = 120
	defaultMetricsAddr     = ":9090"
	defaultStatePath       = "ddns-sync.db"
	defaultResolverTimeout = 5

	tokenEnvVar = "CF_API_TOKEN"
)

type Config struct {
	Zone       string   `yaml:"zone"`
	Token      string   `yaml:"token"`
	Targets    []Target `yaml:"targets"`
	TTL        int      `yaml:"ttl"`
	Proxied    bool     `yaml:"proxied"`
	RunOnStart bool     `yaml:"runOnStart"`

	// Exactly one of these selects the scheduling mode. Interval is seconds
	// between passes; Calendar is a six-field cron expression.
	IntervalSeconds int    `yaml:"interval"`
	Calendar        string `yaml:"calendar"`

	MetricsAddr string   `yaml:"metricsAddr"`
	StatePath   string   `yaml:"statePath"`
	Resolver    Resolver `yaml:"resolver"`
	Log         Log      `yaml:"log"`
}

type Target struct {
	Domain string `yaml:"domain"`
	Type   string `yaml:"type"`
}

type Resolver struct {
	IPv4Endpoints  []string `yaml:"ipv4Endpoints"`
	IPv6Endpoints  []string `yaml:"ipv6Endpoints"`
	TimeoutSeconds int      `yaml:"timeout"`
}

type Log struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Token == "" {
		cfg.Token = os.Getenv(tokenEnvVar)
	}
	if cfg.TTL == 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = defaultMetricsAddr
	}
	if cfg.StatePath == "" {
		cfg.StatePath = defaultStatePath
	}
	if cfg.Resolver.TimeoutSeconds == 0 {
		cfg.Resolver.TimeoutSeconds = defaultResolverTimeout
	}
	for i := range cfg.Targets {
		if cfg.Targets[i].Type == "" {
			cfg.Targets[i].Type = "A"
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Zone == "" {
		return fmt.Errorf("zone must be set")
	}
	if c.Token == "" {
		return fmt.Errorf("token must be set in config or %s", tokenEnvVar)
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("at least one target must be set")
	}
	for _, t := range c.Targets {
		if t.Domain == "" {
			return fmt.Errorf("target domain must be set")
		}
		if t.Type != "A" && t.Type != "AAAA" {
			return fmt.Errorf("target %s: record type must be A or AAAA, got %q", t.Domain, t.Type)
		}
	}
	if c.TTL < 1 || c.TTL > 86400 {
		return fmt.Errorf("ttl must be between 1 and 86400 seconds, got %d", c.TTL)
	}
	return nil
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c *Config) ResolverTimeout() time.Duration {
	return time.Duration(c.Resolver.TimeoutSeconds) * time.Second
}
