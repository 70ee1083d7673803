package jobber

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/alwedo/jobscraper/scrape"
)

const jobURLColumn = "job_url"

var ErrNoJobURL = errors.New("jobber: result has no job_url column")

// Record is a single posting, field name to JSON-safe value.
type Record map[string]any

// Result maps job URLs to their posting.
type Result map[string]Record

// Normalize keys the rows of t by job URL. Missing cells become empty strings,
// dates and datetimes become ISO-8601 strings and everything else is kept as is.
// When two rows share a job URL the later one wins.
func Normalize(t *scrape.Table) (Result, error) {
	if t == nil {
		return Result{}, nil
	}
	key := t.Column(jobURLColumn)
	if key == -1 {
		return nil, ErrNoJobURL
	}

	res := make(Result, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(Record, len(t.Columns)-1)
		var url string
		for i, col := range t.Columns {
			var v any
			if i < len(row) {
				v = normalizeValue(row[i])
			} else {
				v = ""
			}
			if i == key {
				url = fmt.Sprint(v)
				continue
			}
			rec[col] = v
		}
		res[url] = rec
	}
	return res, nil
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		if math.IsNaN(x) {
			return ""
		}
	case float32:
		if math.IsNaN(float64(x)) {
			return ""
		}
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(time.RFC3339Nano)
	case *time.Time:
		if x == nil || x.IsZero() {
			return ""
		}
		return x.Format(time.RFC3339Nano)
	case scrape.Date:
		return x.String()
	case *scrape.Date:
		if x == nil {
			return ""
		}
		return x.String()
	}
	return v
}
