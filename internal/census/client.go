// Package census fetches tract-level attribute counts from the Census
// Bureau ACS API. The API returns a JSON array-of-arrays: a header row
// of variable names followed by one row per tract.
package census

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/urbanmetrics/lisa-cli/internal/resilience"
)

const defaultBaseURL = "https://api.census.gov/data"

// Options configures the ACS client.
type Options struct {
	BaseURL    string        // default https://api.census.gov/data
	APIKey     string        // optional; unkeyed requests are throttled harder upstream
	Year       int           // ACS vintage, e.g. 2022
	Dataset    string        // e.g. "acs/acs5"
	Timeout    time.Duration // default 30s
	MaxRetries int           // default 3
}

// Counts holds one tract's attribute counts.
type Counts struct {
	GEOID      string
	Name       string
	Events     int64
	Population int64
}

// Client is a rate-limited ACS API client.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	opts    Options
}

// NewClient creates an ACS client. The Census API allows bursts but
// enforces a daily quota, so requests are paced conservatively.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.Dataset == "" {
		opts.Dataset = "acs/acs5"
	}
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(2, 2),
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
		opts:    opts,
	}
}

// TractCounts fetches, for every tract in a state+county, the sum of
// the event variables and the population variable. Variable names are
// ACS estimate codes, e.g. B25070_007E. GEOID is state+county+tract.
func (c *Client) TractCounts(ctx context.Context, stateFIPS, countyFIPS string, eventVars []string, popVar string) (map[string]Counts, error) {
	if stateFIPS == "" || countyFIPS == "" {
		return nil, eris.New("census: state and county FIPS are required")
	}
	if len(eventVars) == 0 || popVar == "" {
		return nil, eris.New("census: event and population variables are required")
	}

	vars := append([]string{"NAME", popVar}, eventVars...)

	q := url.Values{}
	q.Set("get", strings.Join(vars, ","))
	q.Set("for", "tract:*")
	q.Set("in", fmt.Sprintf("state:%s county:%s", stateFIPS, countyFIPS))
	if c.opts.APIKey != "" {
		q.Set("key", c.opts.APIKey)
	}

	endpoint := fmt.Sprintf("%s/%d/%s?%s", c.opts.BaseURL, c.opts.Year, c.opts.Dataset, q.Encode())

	rows, err := c.fetchRows(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, eris.Errorf("census: empty response for state %s county %s", stateFIPS, countyFIPS)
	}

	header := rows[0]
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range append([]string{"NAME", popVar, "state", "county", "tract"}, eventVars...) {
		if _, ok := col[required]; !ok {
			return nil, eris.Errorf("census: response missing column %s", required)
		}
	}

	out := make(map[string]Counts, len(rows)-1)
	for _, row := range rows[1:] {
		geoid := row[col["state"]] + row[col["county"]] + row[col["tract"]]

		pop, err := parseCount(row[col[popVar]])
		if err != nil {
			return nil, eris.Wrapf(err, "census: tract %s variable %s", geoid, popVar)
		}

		var events int64
		for _, v := range eventVars {
			n, err := parseCount(row[col[v]])
			if err != nil {
				return nil, eris.Wrapf(err, "census: tract %s variable %s", geoid, v)
			}
			events += n
		}

		out[geoid] = Counts{
			GEOID:      geoid,
			Name:       row[col["NAME"]],
			Events:     events,
			Population: pop,
		}
	}

	zap.L().Info("census: fetched tract counts",
		zap.String("state", stateFIPS),
		zap.String("county", countyFIPS),
		zap.Int("tracts", len(out)),
		zap.Int("year", c.opts.Year),
	)

	return out, nil
}

// fetchRows performs the GET with pacing, retrying transient failures
// through the circuit breaker.
func (c *Client) fetchRows(ctx context.Context, endpoint string) ([][]string, error) {
	retryCfg := resilience.RetryConfig{
		MaxAttempts:    c.opts.MaxRetries,
		InitialBackoff: 500 * time.Millisecond,
		OnRetry:        resilience.RetryLogger("census", "tract_counts"),
	}

	rows, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) ([][]string, error) {
		return resilience.ExecuteVal(ctx, c.breaker, c.fetchOnce(endpoint))
	})
	if err != nil {
		if resilience.IsTransient(err) {
			return nil, eris.Wrap(err, "census: retries exhausted")
		}
		return nil, err
	}
	return rows, nil
}

func (c *Client) fetchOnce(endpoint string) func(ctx context.Context) ([][]string, error) {
	return func(ctx context.Context) ([][]string, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "census: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, eris.Wrap(err, "census: build request")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "census: request"), 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(eris.Errorf("census: http %d", resp.StatusCode), resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, eris.Errorf("census: unexpected status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "census: read response")
		}

		var rows [][]string
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, eris.Wrap(err, "census: decode response")
		}
		return rows, nil
	}
}

// parseCount parses an ACS count cell. The API emits null for
// uninhabited tracts, which maps to 0; negative annotation sentinels
// mark suppressed estimates and are rejected.
func parseCount(s string) (int64, error) {
	if s == "" || s == "null" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse count %q", s)
	}
	if n < 0 {
		return 0, eris.Errorf("suppressed estimate %d", n)
	}
	return n, nil
}
