package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alwedo/jobscraper/proxy"
)

const tablePayloadJSON = `{
  "schema": {
    "fields": [
      {"name": "index", "type": "integer"},
      {"name": "id", "type": "string"},
      {"name": "job_url", "type": "string"},
      {"name": "title", "type": "string"},
      {"name": "min_amount", "type": "number"},
      {"name": "date_posted", "type": "date"},
      {"name": "scraped_at", "type": "datetime"}
    ],
    "primaryKey": ["index"],
    "pandas_version": "1.4.0"
  },
  "data": [
    {"index": 0, "id": "in-1", "job_url": "https://www.indeed.com/viewjob?jk=1", "title": "Backend Engineer", "min_amount": 120000, "date_posted": "2025-11-13", "scraped_at": "2025-11-14T08:30:00.000"},
    {"index": 1, "id": "in-2", "job_url": "https://www.indeed.com/viewjob?jk=2", "title": "Go Engineer", "min_amount": null, "date_posted": "2025-11-12T00:00:00.000", "scraped_at": null}
  ]
}`

func TestRemote(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	t.Run("posts params and decodes the table", func(t *testing.T) {
		var got Params
		svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != remoteScrapePath {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("unable to decode params: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, tablePayloadJSON)
		}))
		defer svr.Close()

		p := &Params{
			SiteName:      []string{SiteIndeed},
			SearchTerm:    "backend",
			ResultsWanted: 200,
			HoursOld:      200,
			CountryIndeed: "ISRAEL",
			Proxies:       &proxy.Config{HTTP: "http://10.0.0.1:80", HTTPS: "http://10.0.0.1:80"},
		}
		table, err := Remote(logger, svr.URL+"/", time.Second).Scrape(context.Background(), p)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if got.CountryIndeed != "ISRAEL" || got.Proxies == nil || got.Proxies.HTTPS != "http://10.0.0.1:80" {
			t.Errorf("params did not reach the sidecar intact: %+v", got)
		}
		if table.Column("index") != -1 {
			t.Errorf("expected primary key column to be dropped")
		}
		if table.Len() != 2 {
			t.Fatalf("expected 2 rows, got %d", table.Len())
		}

		first := table.Rows[0]
		if d := first[table.Column("date_posted")]; d != (Date{Year: 2025, Month: time.November, Day: 13}) {
			t.Errorf("expected date_posted to be a Date, got %#v", d)
		}
		ts, ok := first[table.Column("scraped_at")].(time.Time)
		if !ok || !ts.Equal(time.Date(2025, 11, 14, 8, 30, 0, 0, time.UTC)) {
			t.Errorf("expected scraped_at to be a time.Time, got %#v", first[table.Column("scraped_at")])
		}
		if n, ok := first[table.Column("min_amount")].(json.Number); !ok || n.String() != "120000" {
			t.Errorf("expected min_amount to keep its number, got %#v", first[table.Column("min_amount")])
		}

		second := table.Rows[1]
		if d := second[table.Column("date_posted")]; d != (Date{Year: 2025, Month: time.November, Day: 12}) {
			t.Errorf("expected midnight datetime to become a Date, got %#v", d)
		}
		if v := second[table.Column("min_amount")]; v != nil {
			t.Errorf("expected null to be missing, got %#v", v)
		}
	})

	t.Run("error responses carry the sidecar message", func(t *testing.T) {
		svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"detail": "Glassdoor: location not parsed"}`)
		}))
		defer svr.Close()

		_, err := Remote(logger, svr.URL, time.Second).Scrape(context.Background(), &Params{})
		if err == nil || err.Error() != "jobspy returned 500: Glassdoor: location not parsed" {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rate limited responses are blocked", func(t *testing.T) {
		svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "slow down", http.StatusTooManyRequests)
		}))
		defer svr.Close()

		_, err := Remote(logger, svr.URL, time.Second).Scrape(context.Background(), &Params{})
		if !errors.Is(err, ErrBlocked) {
			t.Errorf("expected ErrBlocked, got %v", err)
		}
	})

	t.Run("bad datetime fails the scrape", func(t *testing.T) {
		svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"schema":{"fields":[{"name":"job_url","type":"string"},{"name":"at","type":"datetime"}]},"data":[{"job_url":"u","at":"yesterday"}]}`)
		}))
		defer svr.Close()

		if _, err := Remote(logger, svr.URL, time.Second).Scrape(context.Background(), &Params{}); err == nil {
			t.Errorf("expected an error")
		}
	})
}

func TestRouter(t *testing.T) {
	linkedin := &mockScraper{}
	fallback := &mockScraper{}

	t.Run("dispatches by site", func(t *testing.T) {
		r := NewRouter(fallback).Handle(SiteLinkedIn, linkedin)
		if _, err := r.Scrape(context.Background(), &Params{SiteName: []string{SiteLinkedIn}}); err != nil {
			t.Fatal(err)
		}
		if _, err := r.Scrape(context.Background(), &Params{SiteName: []string{SiteIndeed}}); err != nil {
			t.Fatal(err)
		}
		if linkedin.Calls != 1 || fallback.Calls != 1 {
			t.Errorf("expected one call each, got linkedin=%d fallback=%d", linkedin.Calls, fallback.Calls)
		}
	})

	t.Run("without fallback unknown sites are unsupported", func(t *testing.T) {
		r := NewRouter(nil).Handle(SiteLinkedIn, linkedin)
		_, err := r.Scrape(context.Background(), &Params{SiteName: []string{SiteGlassdoor}})
		if !errors.Is(err, ErrSiteUnsupported) {
			t.Errorf("expected ErrSiteUnsupported, got %v", err)
		}
	})

	t.Run("requires a single site", func(t *testing.T) {
		if _, err := NewRouter(fallback).Scrape(context.Background(), &Params{}); err == nil {
			t.Errorf("expected an error")
		}
	})
}
