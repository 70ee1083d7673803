package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"
)

const remoteScrapePath = "/scrape"

// Layouts a sidecar may use for datetime fields, most specific first.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// remote runs scrapes on a JobSpy sidecar over HTTP.
type remote struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func Remote(logger *slog.Logger, baseURL string, timeout time.Duration) *remote { //nolint: revive
	return &remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// tablePayload is a pandas DataFrame serialized with orient="table".
type tablePayload struct {
	Schema struct {
		Fields []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"fields"`
		PrimaryKey []string `json:"primaryKey"`
	} `json:"schema"`
	Data []map[string]any `json:"data"`
}

type remoteError struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (r *remote) Scrape(ctx context.Context, p *Params) (*Table, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+remoteScrapePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach jobspy: %w", err)
	}
	defer resp.Body.Close()
	r.logger.Debug("jobspy responded", slog.Int("status", resp.StatusCode), slog.Duration("took", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return nil, r.statusError(resp)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var payload tablePayload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode jobspy response: %w", err)
	}
	return payload.table()
}

func (r *remote) statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint: errcheck
	msg := strings.TrimSpace(string(raw))
	var e remoteError
	if json.Unmarshal(raw, &e) == nil {
		switch {
		case e.Error != "":
			msg = e.Error
		case e.Detail != "":
			msg = e.Detail
		}
	}
	if blocked(resp.StatusCode) {
		return fmt.Errorf("%w: jobspy returned %d: %s", ErrBlocked, resp.StatusCode, msg)
	}
	return fmt.Errorf("jobspy returned %d: %s", resp.StatusCode, msg)
}

func (p *tablePayload) table() (*Table, error) {
	t := &Table{}
	types := map[string]string{}
	for _, f := range p.Schema.Fields {
		if slices.Contains(p.Schema.PrimaryKey, f.Name) {
			continue
		}
		t.Columns = append(t.Columns, f.Name)
		types[f.Name] = f.Type
	}

	for i, rec := range p.Data {
		row := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			v, err := decodeCell(types[c], rec[c])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, c, err)
			}
			row[j] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// decodeCell turns date and datetime fields into their Go types.
func decodeCell(typ string, v any) (any, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return v, nil
	}
	switch typ {
	case "date":
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			// pandas renders dates stored as datetimes with a midnight time.
			dt, derr := parseDatetime(s)
			if derr != nil {
				return nil, err
			}
			d = dt
		}
		return DateOf(d), nil
	case "datetime":
		return parseDatetime(s)
	}
	return v, nil
}

func parseDatetime(s string) (time.Time, error) {
	var err error
	for _, layout := range datetimeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse datetime %q: %w", s, err)
}
