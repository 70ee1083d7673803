package jobber

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/alwedo/jobscraper/proxy"
	"github.com/alwedo/jobscraper/scrape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type selectorFunc func(context.Context) (*proxy.Config, error)

func (f selectorFunc) Select(ctx context.Context) (*proxy.Config, error) { return f(ctx) }

func newTestJobber(t *testing.T, sel proxy.Selector) *Jobber {
	t.Helper()
	scrape.MockScraper.Reset()
	l := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	return New(l, scrape.MockScraper, sel)
}

func intPtr(i int) *int { return &i }

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{name: "complete", req: Request{Location: "Tel Aviv", Position: "Backend Engineer", SiteName: "indeed"}},
		{name: "with hour old", req: Request{Location: "NYC", Position: "Data Scientist", SiteName: "linkedin", HourOld: intPtr(24)}},
		{name: "missing location", req: Request{Position: "Backend Engineer", SiteName: "indeed"}, wantErr: true},
		{name: "missing position", req: Request{Location: "Tel Aviv", SiteName: "indeed"}, wantErr: true},
		{name: "missing site", req: Request{Location: "Tel Aviv", Position: "Backend Engineer"}, wantErr: true},
		{name: "zero hour old", req: Request{Location: "NYC", Position: "Data Scientist", SiteName: "linkedin", HourOld: intPtr(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestScrapeJobs(t *testing.T) {
	t.Run("invalid sites list the valid set", func(t *testing.T) {
		j := newTestJobber(t, nil)
		for _, site := range []string{"monster", "Indeed", "ziprecruiter", "linkedin ", "stepstone"} {
			_, err := j.ScrapeJobs(context.Background(), &Request{Location: "NYC", Position: "Go", SiteName: site})
			var ise *InvalidSiteError
			require.ErrorAs(t, err, &ise, site)
			assert.Contains(t, err.Error(), site)
			for _, valid := range scrape.Sites {
				assert.Contains(t, err.Error(), valid)
			}
		}
		assert.Zero(t, scrape.MockScraper.Calls, "scraper should not be called for invalid sites")
	})

	t.Run("indeed targets israel with default recency", func(t *testing.T) {
		j := newTestJobber(t, nil)
		scrape.MockScraper.Respond(&scrape.Table{
			Columns: []string{"job_url", "title"},
			Rows:    [][]any{{"https://www.indeed.com/viewjob?jk=1", "Backend Engineer"}},
		}, nil)

		res, err := j.ScrapeJobs(context.Background(), &Request{Location: "Tel Aviv", Position: "Backend Engineer", SiteName: "indeed"})
		require.NoError(t, err)

		p := scrape.MockScraper.LastQuery
		require.NotNil(t, p)
		assert.Equal(t, []string{"indeed"}, p.SiteName)
		assert.Equal(t, "ISRAEL", p.CountryIndeed)
		assert.Equal(t, 200, p.HoursOld)
		assert.Equal(t, 200, p.ResultsWanted)
		assert.Equal(t, "Backend Engineer", p.SearchTerm)
		assert.Equal(t, "Tel Aviv", p.Location)
		assert.Equal(t, "Backend Engineer engineer jobs in Tel Aviv since past month", p.GoogleSearchTerm)
		assert.True(t, p.LinkedInFetchDescription)
		assert.Nil(t, p.Proxies)
		assert.Equal(t, Result{"https://www.indeed.com/viewjob?jk=1": {"title": "Backend Engineer"}}, res)
	})

	t.Run("other sites target usa with the requested recency", func(t *testing.T) {
		j := newTestJobber(t, nil)
		_, err := j.ScrapeJobs(context.Background(), &Request{Location: "NYC", Position: "Data Scientist", SiteName: "linkedin", HourOld: intPtr(24)})
		require.NoError(t, err)

		p := scrape.MockScraper.LastQuery
		assert.Equal(t, "USA", p.CountryIndeed)
		assert.Equal(t, 24, p.HoursOld)
		assert.Equal(t, "Data Scientist engineer jobs in NYC since past month", p.GoogleSearchTerm)
	})

	t.Run("a supplied hour old is passed through as is", func(t *testing.T) {
		j := newTestJobber(t, nil)
		_, err := j.ScrapeJobs(context.Background(), &Request{Location: "NYC", Position: "Go", SiteName: "indeed", HourOld: intPtr(0)})
		require.NoError(t, err)
		assert.Equal(t, 0, scrape.MockScraper.LastQuery.HoursOld)
	})

	t.Run("selected proxy is attached", func(t *testing.T) {
		s, err := proxy.NewStatic([]string{"10.0.0.1:8080"})
		require.NoError(t, err)
		j := newTestJobber(t, s)

		_, err = j.ScrapeJobs(context.Background(), &Request{Location: "NYC", Position: "Go", SiteName: "google"})
		require.NoError(t, err)
		assert.Equal(t, &proxy.Config{HTTP: "http://10.0.0.1:8080", HTTPS: "http://10.0.0.1:8080"}, scrape.MockScraper.LastQuery.Proxies)
	})

	t.Run("proxy failures fail the scrape", func(t *testing.T) {
		j := newTestJobber(t, selectorFunc(func(context.Context) (*proxy.Config, error) {
			return nil, proxy.ErrNoWorkingProxy
		}))

		_, err := j.ScrapeJobs(context.Background(), &Request{Location: "NYC", Position: "Go", SiteName: "glassdoor"})
		var sfe *ScrapeFailedError
		require.ErrorAs(t, err, &sfe)
		assert.ErrorIs(t, err, proxy.ErrNoWorkingProxy)
		assert.Zero(t, scrape.MockScraper.Calls, "scraper should not run without its proxy")
	})

	t.Run("scraper failures carry the underlying message", func(t *testing.T) {
		j := newTestJobber(t, nil)
		cause := errors.New("connection reset by peer")
		scrape.MockScraper.Respond(nil, cause)

		_, err := j.ScrapeJobs(context.Background(), &Request{Location: "NYC", Position: "Go", SiteName: "zip_recruiter"})
		var sfe *ScrapeFailedError
		require.ErrorAs(t, err, &sfe)
		assert.ErrorIs(t, err, cause)
		assert.True(t, strings.HasSuffix(err.Error(), cause.Error()), "got %q", err.Error())
	})

	t.Run("results without job urls fail", func(t *testing.T) {
		j := newTestJobber(t, nil)
		scrape.MockScraper.Respond(&scrape.Table{Columns: []string{"title"}}, nil)

		_, err := j.ScrapeJobs(context.Background(), &Request{Location: "NYC", Position: "Go", SiteName: "indeed"})
		assert.ErrorIs(t, err, ErrNoJobURL)
	})
}
