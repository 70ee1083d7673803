package jobber

import (
	"fmt"
	"strings"

	"github.com/alwedo/jobscraper/scrape"
)

// ValidationError is a malformed or incomplete request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// InvalidSiteError is a site outside of scrape.Sites.
type InvalidSiteError struct {
	Site string
}

func (e *InvalidSiteError) Error() string {
	return fmt.Sprintf("invalid site name: %s, expected one of [%s]", e.Site, strings.Join(scrape.Sites, ", "))
}

// ScrapeFailedError wraps any failure of the proxy selection or the scrape itself.
type ScrapeFailedError struct {
	Err error
}

func (e *ScrapeFailedError) Error() string { return "error fetching jobs: " + e.Err.Error() }

func (e *ScrapeFailedError) Unwrap() error { return e.Err }
