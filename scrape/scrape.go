// Package scrape defines the Scraper interface for extracting job postings from job boards.
// Implementations accept a parameter set and return the postings as a Table, one row per posting.
// Includes a native LinkedIn engine, a client for a JobSpy sidecar and a mock implementation for testing.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/alwedo/jobscraper/proxy"
)

const (
	SiteIndeed       = "indeed"
	SiteLinkedIn     = "linkedin"
	SiteZipRecruiter = "zip_recruiter"
	SiteGlassdoor    = "glassdoor"
	SiteGoogle       = "google"
)

// Sites is the allow-list of job boards, in the order they are reported.
var Sites = []string{SiteIndeed, SiteLinkedIn, SiteZipRecruiter, SiteGlassdoor, SiteGoogle}

func ValidSite(site string) bool { return slices.Contains(Sites, site) }

var (
	ErrSiteUnsupported = errors.New("scrape: site not supported by this engine")
	ErrBlocked         = errors.New("scrape: blocked by site")
)

type Scraper interface {
	Scrape(context.Context, *Params) (*Table, error)
}

// Params is the parameter set of a single scrape.
type Params struct {
	SiteName                 []string      `json:"site_name"`
	SearchTerm               string        `json:"search_term"`
	GoogleSearchTerm         string        `json:"google_search_term"`
	Location                 string        `json:"location"`
	ResultsWanted            int           `json:"results_wanted"`
	HoursOld                 int           `json:"hours_old"`
	LinkedInFetchDescription bool          `json:"linkedin_fetch_description"`
	CountryIndeed            string        `json:"country_indeed"`
	Proxies                  *proxy.Config `json:"proxies,omitempty"`
}

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Table is the tabular scrape result. A nil cell is a missing value.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	return slices.Index(t.Columns, name)
}

// Append adds a row built from a column->value mapping; unknown columns are ignored.
func (t *Table) Append(values map[string]any) {
	row := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		row[i] = values[c]
	}
	t.Rows = append(t.Rows, row)
}

func (t *Table) Len() int { return len(t.Rows) }

// transport returns a copy of the default transport routing through p, or the default one.
func transport(p *proxy.Config) (http.RoundTripper, error) {
	if p == nil {
		return http.DefaultTransport, nil
	}
	httpURL, err := url.Parse(p.HTTP)
	if err != nil {
		return nil, fmt.Errorf("invalid http proxy: %w", err)
	}
	httpsURL, err := url.Parse(p.HTTPS)
	if err != nil {
		return nil, fmt.Errorf("invalid https proxy: %w", err)
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = func(r *http.Request) (*url.URL, error) {
		if r.URL.Scheme == "https" {
			return httpsURL, nil
		}
		return httpURL, nil
	}
	return tr, nil
}

func blocked(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusForbidden
}

type mockScraper struct {
	mu        sync.Mutex
	LastQuery *Params
	Calls     int
	Table     *Table
	Err       error
}

func (m *mockScraper) Scrape(_ context.Context, p *Params) (*Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastQuery = p
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Table == nil {
		return &Table{Columns: []string{"job_url"}}, nil
	}
	return m.Table, nil
}

// Respond sets what the next scrapes return.
func (m *mockScraper) Respond(t *Table, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Table, m.Err = t, err
}

// Reset clears the recorded calls and canned responses.
func (m *mockScraper) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastQuery, m.Calls, m.Table, m.Err = nil, 0, nil, nil
}

var MockScraper = &mockScraper{}
