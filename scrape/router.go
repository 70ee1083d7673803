package scrape

import (
	"context"
	"errors"
	"fmt"
)

// Router sends a scrape to the engine registered for its site, or to the
// fallback engine when there is none.
type Router struct {
	engines  map[string]Scraper
	fallback Scraper
}

func NewRouter(fallback Scraper) *Router {
	return &Router{engines: map[string]Scraper{}, fallback: fallback}
}

// Handle registers s for site.
func (r *Router) Handle(site string, s Scraper) *Router {
	r.engines[site] = s
	return r
}

func (r *Router) Scrape(ctx context.Context, p *Params) (*Table, error) {
	if len(p.SiteName) != 1 {
		return nil, errors.New("scrape: exactly one site is required")
	}
	site := p.SiteName[0]
	if s, ok := r.engines[site]; ok {
		return s.Scrape(ctx, p)
	}
	if r.fallback != nil {
		return r.fallback.Scrape(ctx, p)
	}
	return nil, fmt.Errorf("%w: %s", ErrSiteUnsupported, site)
}
