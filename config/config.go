// Package config loads the service configuration at startup.
// Values come from an optional .env file, an optional YAML file and the
// environment, in increasing order of precedence. Invalid values fail fast.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alwedo/jobscraper/proxy"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort          = "80"
	defaultScrapeTimeout = 5 * time.Minute
)

// Config holds all runtime configuration for the scraper API.
type Config struct {
	Port          string        `yaml:"port"`
	LogFile       string        `yaml:"log_file"`
	LogLevel      string        `yaml:"log_level"`
	JobSpyURL     string        `yaml:"jobspy_url"` // Remote engine; empty uses the native LinkedIn engine only
	ScrapeTimeout time.Duration `yaml:"scrape_timeout"`
	Proxy         Proxy         `yaml:"proxy"`
}

type Proxy struct {
	Strategy string        `yaml:"strategy"` // none, discovery or static
	Static   []string      `yaml:"static"`
	ListURL  string        `yaml:"list_url"`
	CheckURL string        `yaml:"check_url"`
	Timeout  time.Duration `yaml:"timeout"`
	Random   *bool         `yaml:"random"`
}

// Load reads the configuration. path is the YAML file to read, if any.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("unable to load .env: %w", err)
	}

	cfg := &Config{}
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unable to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.fromEnv(); err != nil {
		return nil, err
	}
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) fromEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.LogFile, "LOG_FILE")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.JobSpyURL, "JOBSPY_URL")
	setString(&c.Proxy.Strategy, "PROXY_STRATEGY")
	setString(&c.Proxy.ListURL, "PROXY_LIST_URL")
	setString(&c.Proxy.CheckURL, "PROXY_CHECK_URL")

	if s := os.Getenv("STATIC_PROXIES"); s != "" {
		c.Proxy.Static = nil
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Proxy.Static = append(c.Proxy.Static, p)
			}
		}
	}
	if err := setDuration(&c.ScrapeTimeout, "SCRAPE_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.Proxy.Timeout, "PROXY_TIMEOUT"); err != nil {
		return err
	}
	if s := os.Getenv("PROXY_RANDOM"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("PROXY_RANDOM must be a boolean, got %q", s)
		}
		c.Proxy.Random = &v
	}
	return nil
}

func (c *Config) defaults() {
	if c.Port == "" {
		c.Port = defaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ScrapeTimeout == 0 {
		c.ScrapeTimeout = defaultScrapeTimeout
	}
	if c.Proxy.Strategy == "" {
		c.Proxy.Strategy = proxy.StrategyNone
	}
	if c.Proxy.Timeout == 0 {
		c.Proxy.Timeout = proxy.DefaultTimeout
	}
	if c.Proxy.Random == nil {
		r := true
		c.Proxy.Random = &r
	}
}

func (c *Config) validate() error {
	if _, err := strconv.ParseUint(c.Port, 10, 16); err != nil {
		return fmt.Errorf("PORT must be a valid port number, got %q", c.Port)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.ScrapeTimeout < 0 || c.Proxy.Timeout < 0 {
		return errors.New("timeouts must be positive")
	}
	switch c.Proxy.Strategy {
	case proxy.StrategyNone, proxy.StrategyDiscovery, proxy.StrategyStatic:
	default:
		return fmt.Errorf("PROXY_STRATEGY must be one of none, discovery, static, got %q", c.Proxy.Strategy)
	}
	return nil
}

// Addr is the listen address on all interfaces.
func (c *Config) Addr() string { return ":" + c.Port }

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	return l, nil
}

// ProxyOptions converts the proxy section for proxy.New.
func (c *Config) ProxyOptions() proxy.Options {
	return proxy.Options{
		Strategy: c.Proxy.Strategy,
		Static:   c.Proxy.Static,
		ListURL:  c.Proxy.ListURL,
		CheckURL: c.Proxy.CheckURL,
		Timeout:  c.Proxy.Timeout,
		Random:   c.Proxy.Random == nil || *c.Proxy.Random,
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%s must be a duration like 1s or 5m, got %q", key, s)
	}
	*dst = d
	return nil
}
