package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alwedo/jobscraper/proxy"
)

const (
	linkedInBaseURL    = "https://www.linkedin.com"
	linkedInSearchPath = "/jobs-guest/jobs/api/seeMoreJobPostings/search"
	linkedInPostPath   = "/jobs-guest/jobs/api/jobPosting/"
	linkedInViewURL    = "https://www.linkedin.com/jobs/view/"
	paramKeywords      = "keywords" // Search keywords, ie. "golang"
	paramLocation      = "location" // Location of the search, ie. "Berlin"
	paramStart         = "start"    // Start of the pagination, in intervals of 10s, ie. "10"
	paramFTPR          = "f_TPR"    // Time Posted Range. Values are in seconds, starting with 'r', ie. r86400 = Past 24 hours
	searchInterval     = 10         // LinkedIn pagination interval
	oneWeekInSeconds   = 604800
)

var linkedInColumns = []string{"id", "site", "job_url", "title", "company", "location", "date_posted", "description"}

type linkedIn struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func LinkedIn(logger *slog.Logger) *linkedIn { //nolint: revive
	return &linkedIn{
		baseURL: linkedInBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type offer struct {
	id, title, company, location string
	postedAt                     any
}

// Scrape runs a linkedin search based on the params.
// It will paginate over the search results until it doesn't find any more offers
// or ResultsWanted is reached, and return one row per offer.
func (l *linkedIn) Scrape(ctx context.Context, p *Params) (*Table, error) {
	client, err := l.clientFor(p.Proxies)
	if err != nil {
		return nil, err
	}
	if client != l.client {
		defer client.CloseIdleConnections()
	}

	table := &Table{Columns: linkedInColumns}
	seen := map[string]bool{}
	var offers []offer

	for i := 0; i == 0 || (len(offers) == searchInterval && !full(table, p)); i += searchInterval {
		resp, err := l.fetchOffersPage(ctx, client, p, i)
		if err != nil {
			return nil, fmt.Errorf("failed to fetchOffersPage in linkedIn.Scrape: %w", err)
		}
		offers, err = l.parseLinkedInBody(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to parseLinkedInBody in linkedIn.Scrape: %w", err)
		}
		for _, o := range offers {
			if seen[o.id] || full(table, p) {
				continue
			}
			seen[o.id] = true

			var description any
			if p.LinkedInFetchDescription {
				if d, err := l.fetchDescription(ctx, client, o.id); err != nil {
					l.logger.Warn("unable to fetch description", slog.String("jobID", o.id), slog.String("error", err.Error()))
				} else {
					description = d
				}
			}

			table.Append(map[string]any{
				"id":          "li-" + o.id,
				"site":        SiteLinkedIn,
				"job_url":     linkedInViewURL + o.id,
				"title":       o.title,
				"company":     o.company,
				"location":    o.location,
				"date_posted": o.postedAt,
				"description": description,
			})
		}
	}

	return table, nil
}

func full(t *Table, p *Params) bool {
	return p.ResultsWanted > 0 && t.Len() >= p.ResultsWanted
}

// clientFor returns the shared client, or a one-off client routed through p
// whose idle connections the caller closes when done.
func (l *linkedIn) clientFor(p *proxy.Config) (*http.Client, error) {
	if p == nil {
		return l.client, nil
	}
	tr, err := transport(p)
	if err != nil {
		return nil, err
	}
	return &http.Client{Timeout: l.client.Timeout, Transport: tr}, nil
}

// fetchOffersPage gets job offers from LinkedIn based on the passed params.
// This returns a list of max 10 elements. We move the start by increments of 10.
func (l *linkedIn) fetchOffersPage(ctx context.Context, client *http.Client, p *Params, start int) (io.ReadCloser, error) {
	qp := url.Values{}
	qp.Add(paramKeywords, p.SearchTerm)
	if p.Location != "" {
		qp.Add(paramLocation, p.Location)
	}
	if start != 0 {
		qp.Add(paramStart, strconv.Itoa(start))
	}

	ftpr := oneWeekInSeconds
	if p.HoursOld > 0 {
		ftpr = int((time.Duration(p.HoursOld) * time.Hour).Seconds())
	}
	qp.Add(paramFTPR, fmt.Sprintf("r%d", ftpr))

	u, err := url.Parse(l.baseURL + linkedInSearchPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	u.RawQuery = qp.Encode()

	return l.get(ctx, client, u.String())
}

// fetchDescription fetches the posting page of a job and returns its description text.
func (l *linkedIn) fetchDescription(ctx context.Context, client *http.Client, id string) (string, error) {
	body, err := l.get(ctx, client, l.baseURL+linkedInPostPath+id)
	if err != nil {
		return "", err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	return normalize(doc.Find(".show-more-less-html__markup").Text()), nil
}

func (l *linkedIn) get(ctx context.Context, client *http.Client, u string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if blocked(resp.StatusCode) {
			return nil, fmt.Errorf("%w: received status code: %d", ErrBlocked, resp.StatusCode)
		}
		return nil, fmt.Errorf("received status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// parseLinkedInBody parses the LinkedIn HTML response and returns a list of offers.
func (l *linkedIn) parseLinkedInBody(body io.ReadCloser) ([]offer, error) {
	defer body.Close()
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	var jobs []offer

	// Find all job listings
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		// Check if this li contains a job card
		if s.Find(".base-search-card").Length() == 0 {
			return
		}
		job := offer{}

		// Extract Job ID from data-entity-urn
		if urn, exists := s.Find("[data-entity-urn]").Attr("data-entity-urn"); exists {
			id := strings.Split(urn, ":")
			job.id = id[len(id)-1]
		}

		job.title = normalize(s.Find(".base-search-card__title").Text())
		job.company = normalize(s.Find(".base-search-card__subtitle a").Text())
		job.location = normalize(s.Find(".job-search-card__location").Text())

		// Missing or unparsable dates stay missing.
		postedAt, _ := s.Find("time").Attr("datetime")
		if t, err := time.Parse(time.DateOnly, postedAt); err != nil {
			l.logger.Debug("unable to parse datetime", slog.String("jobID", job.id), slog.String("error", err.Error()))
		} else {
			job.postedAt = DateOf(t)
		}

		// Only add if we have essential data
		if job.id != "" && job.title != "" {
			jobs = append(jobs, job)
		} else {
			l.logger.Error("Missing essential data for job ID", slog.String("jobID", job.id))
		}
	})

	return jobs, nil
}

// normalize removes newlines and trims whitespace from a string.
func normalize(s string) string {
	str := strings.Split(s, "\n")
	for i, v := range str {
		str[i] = strings.TrimSpace(v)
	}
	return strings.TrimSpace(strings.Join(str, " "))
}
