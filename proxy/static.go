package proxy

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
)

// DefaultStaticList is used when no static proxies are configured.
var DefaultStaticList = []string{
	"51.158.68.133:8811",
	"51.158.68.68:8811",
	"163.172.31.44:80",
	"185.199.229.156:7492",
	"185.199.228.220:7300",
	"188.74.210.207:6286",
}

var ErrEmptyList = errors.New("proxy: static list is empty")

// Static picks uniformly at random from a fixed list of host:port entries.
// It gives no guarantee the picked proxy is reachable.
type Static struct {
	addrs []string
}

func NewStatic(addrs []string) (*Static, error) {
	if len(addrs) == 0 {
		return nil, ErrEmptyList
	}
	for _, a := range addrs {
		if err := validAddr(a); err != nil {
			return nil, err
		}
	}
	return &Static{addrs: slices.Clone(addrs)}, nil
}

func (s *Static) Select(context.Context) (*Config, error) {
	return wrap(s.addrs[rand.IntN(len(s.addrs))]), nil
}

func (s *Static) String() string { return StrategyStatic }
