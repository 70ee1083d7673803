package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	DefaultListURL  = "https://free-proxy-list.net/"
	DefaultCheckURL = "http://www.google.com"
	DefaultTimeout  = time.Second

	userAgent   = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	rowSelector = "table tbody tr"
)

var ErrNoWorkingProxy = errors.New("proxy: there are no working proxies at this time")

// Discovery asks a public free proxy list for candidates and returns the
// first one that answers a check request within the timeout.
type Discovery struct {
	ListURL  string
	CheckURL string
	Timeout  time.Duration
	Random   bool
	logger   *slog.Logger
}

func NewDiscovery(logger *slog.Logger) *Discovery {
	return &Discovery{
		ListURL:  DefaultListURL,
		CheckURL: DefaultCheckURL,
		Timeout:  DefaultTimeout,
		Random:   true,
		logger:   logger,
	}
}

func (d *Discovery) String() string { return StrategyDiscovery }

func (d *Discovery) Select(ctx context.Context) (*Config, error) {
	candidates, err := d.candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch proxy list: %w", err)
	}
	if d.Random {
		rand.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
	}

	for _, addr := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := d.check(ctx, addr); err != nil {
			d.logger.Debug("proxy candidate rejected", slog.String("proxy", addr), slog.String("error", err.Error()))
			continue
		}
		return wrap(addr), nil
	}
	return nil, ErrNoWorkingProxy
}

// candidates scrapes the ip:port rows of the list page.
func (d *Discovery) candidates(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var addrs []string

	c := colly.NewCollector(colly.UserAgent(userAgent))
	c.SetRequestTimeout(10 * d.Timeout)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnHTML(rowSelector, func(e *colly.HTMLElement) {
		ip := strings.TrimSpace(e.ChildText("td:nth-child(1)"))
		port := strings.TrimSpace(e.ChildText("td:nth-child(2)"))
		addr := net.JoinHostPort(ip, port)
		if ip == "" || port == "" || validAddr(addr) != nil {
			return
		}
		addrs = append(addrs, addr)
	})

	if err := c.Visit(d.ListURL); err != nil {
		return nil, err
	}
	return addrs, nil
}

// check issues a GET to CheckURL through addr.
func (d *Discovery) check(ctx context.Context, addr string) error {
	pu, err := url.Parse("http://" + addr)
	if err != nil {
		return err
	}
	client := &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(pu)},
		Timeout:   d.Timeout,
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.CheckURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received status code: %d", resp.StatusCode)
	}
	return nil
}
