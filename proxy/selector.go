package proxy

import (
	"fmt"
	"log/slog"
	"time"
)

// Options carries what New needs to build any of the strategies.
type Options struct {
	Strategy string
	Static   []string
	ListURL  string
	CheckURL string
	Timeout  time.Duration
	Random   bool
}

// New builds the Selector named by opts.Strategy.
func New(logger *slog.Logger, opts Options) (Selector, error) {
	switch opts.Strategy {
	case "", StrategyNone:
		return None{}, nil
	case StrategyStatic:
		addrs := opts.Static
		if len(addrs) == 0 {
			addrs = DefaultStaticList
		}
		s, err := NewStatic(addrs)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StrategyDiscovery:
		d := NewDiscovery(logger)
		if opts.ListURL != "" {
			d.ListURL = opts.ListURL
		}
		if opts.CheckURL != "" {
			d.CheckURL = opts.CheckURL
		}
		if opts.Timeout > 0 {
			d.Timeout = opts.Timeout
		}
		d.Random = opts.Random
		return d, nil
	default:
		return nil, fmt.Errorf("unknown proxy strategy %q, expected one of %s, %s, %s",
			opts.Strategy, StrategyNone, StrategyDiscovery, StrategyStatic)
	}
}
