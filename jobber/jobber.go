// Package jobber runs a single job board scrape for a location and position,
// routed through the configured proxy, and returns the postings keyed by job URL.
package jobber

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alwedo/jobscraper/metrics"
	"github.com/alwedo/jobscraper/proxy"
	"github.com/alwedo/jobscraper/scrape"
)

const (
	resultsWanted   = 200
	defaultHoursOld = 200
	countryIsrael   = "ISRAEL"
	countryUSA      = "USA"
)

// Request is the body of a scrape request.
type Request struct {
	Location string `json:"location"`
	Position string `json:"position"`
	SiteName string `json:"siteName"`
	HourOld  *int   `json:"hourOld,omitempty"`
}

// Validate checks the required fields are present.
func (r *Request) Validate() error {
	if r.Location == "" || r.Position == "" || r.SiteName == "" {
		return &ValidationError{Msg: "missing required fields: location, position, siteName"}
	}
	return nil
}

type Jobber struct {
	logger   *slog.Logger
	scraper  scrape.Scraper
	selector proxy.Selector
}

func New(log *slog.Logger, s scrape.Scraper, sel proxy.Selector) *Jobber {
	if sel == nil {
		sel = proxy.None{}
	}
	return &Jobber{
		logger:   log,
		scraper:  s,
		selector: sel,
	}
}

// ScrapeJobs validates the site, picks a proxy, runs the scrape and
// normalizes its result. Every request does its own proxy selection and scrape.
func (j *Jobber) ScrapeJobs(ctx context.Context, r *Request) (Result, error) {
	if !scrape.ValidSite(r.SiteName) {
		return nil, &InvalidSiteError{Site: r.SiteName}
	}

	p, err := j.params(ctx, r)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	table, err := j.scraper.Scrape(ctx, p)
	if err != nil {
		metrics.ObserveScrape(r.SiteName, metrics.OutcomeError, time.Since(start))
		j.logger.Error("scrape failed",
			slog.String("site", r.SiteName),
			slog.String("location", r.Location),
			slog.String("position", r.Position),
			slog.String("error", err.Error()),
		)
		return nil, &ScrapeFailedError{Err: err}
	}

	res, err := Normalize(table)
	if err != nil {
		metrics.ObserveScrape(r.SiteName, metrics.OutcomeError, time.Since(start))
		return nil, &ScrapeFailedError{Err: err}
	}
	metrics.ObserveScrape(r.SiteName, metrics.OutcomeOK, time.Since(start))
	j.logger.Info("scrape done",
		slog.String("site", r.SiteName),
		slog.String("location", r.Location),
		slog.String("position", r.Position),
		slog.Int("jobs", len(res)),
	)
	return res, nil
}

// params builds the scrape parameter set for r.
func (j *Jobber) params(ctx context.Context, r *Request) (*scrape.Params, error) {
	hoursOld := defaultHoursOld
	if r.HourOld != nil {
		hoursOld = *r.HourOld
	}
	country := countryUSA
	if r.SiteName == scrape.SiteIndeed {
		country = countryIsrael
	}

	cfg, err := j.selector.Select(ctx)
	strategy := strategyName(j.selector)
	if err != nil {
		metrics.ProxySelections.WithLabelValues(strategy, metrics.OutcomeError).Inc()
		j.logger.Error("proxy selection failed", slog.String("strategy", strategy), slog.String("error", err.Error()))
		return nil, &ScrapeFailedError{Err: err}
	}
	metrics.ProxySelections.WithLabelValues(strategy, metrics.OutcomeOK).Inc()
	if cfg != nil {
		j.logger.Debug("proxy selected", slog.String("strategy", strategy), slog.String("proxy", cfg.HTTP))
	}

	return &scrape.Params{
		SiteName:                 []string{r.SiteName},
		SearchTerm:               r.Position,
		GoogleSearchTerm:         fmt.Sprintf("%s engineer jobs in %s since past month", r.Position, r.Location),
		Location:                 r.Location,
		ResultsWanted:            resultsWanted,
		HoursOld:                 hoursOld,
		LinkedInFetchDescription: true,
		CountryIndeed:            country,
		Proxies:                  cfg,
	}, nil
}

func strategyName(sel proxy.Selector) string {
	if s, ok := sel.(fmt.Stringer); ok {
		return s.String()
	}
	return "custom"
}
