// Package proxy picks the outbound proxy a scrape is routed through.
// Selection is stateless: every call produces a fresh Config (or none) and
// nothing is remembered about which proxies worked before.
package proxy

import (
	"context"
	"fmt"
	"net"
	"strings"
)

const (
	StrategyNone      = "none"
	StrategyDiscovery = "discovery"
	StrategyStatic    = "static"
)

// Config is the proxy mapping handed to the scraping engine.
type Config struct {
	HTTP  string `json:"http"`
	HTTPS string `json:"https"`
}

// Selector returns the proxy for a single scrape. A nil Config with a nil
// error means the scrape goes out directly.
type Selector interface {
	Select(ctx context.Context) (*Config, error)
}

// None never routes through a proxy.
type None struct{}

func (None) Select(context.Context) (*Config, error) { return nil, nil }

func (None) String() string { return StrategyNone }

// wrap builds the same http:// proxy URL for both schemes.
func wrap(addr string) *Config {
	u := "http://" + addr
	return &Config{HTTP: u, HTTPS: u}
}

func validAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid proxy address %q: %w", addr, err)
	}
	if strings.TrimSpace(host) == "" || strings.TrimSpace(port) == "" {
		return fmt.Errorf("invalid proxy address %q: empty host or port", addr)
	}
	return nil
}
