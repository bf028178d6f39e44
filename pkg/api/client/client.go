package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/splax/heatlens/internal/domain"
)

// Client provides typed access to the heatlens API for operator tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:4000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg := extractError(resp.Body)
		return APIError{Status: resp.StatusCode, Message: msg}
	}

	if v == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}

// DateLayout is the calendar-day form accepted by the range parameters.
const DateLayout = "2006-01-02"

// Range is an optional query window; zero bounds are omitted so the server applies
// its defaults.
type Range struct {
	Start time.Time
	End   time.Time
}

// SnapshotQuery selects the telemetry behind a snapshot.
type SnapshotQuery struct {
	SiteID string
	Path   string
	Device string
	Range  Range
}

func (q SnapshotQuery) values() url.Values {
	v := url.Values{}
	v.Set("site_id", q.SiteID)
	v.Set("path", q.Path)
	if q.Device != "" {
		v.Set("device", q.Device)
	}
	setTime(v, "start", q.Range.Start)
	setTime(v, "end", q.Range.End)
	return v
}

func setTime(v url.Values, key string, t time.Time) {
	if !t.IsZero() {
		v.Set(key, t.UTC().Format(time.RFC3339))
	}
}

// Estimate submits a page's HTML for a structural heatmap estimate.
func (c *Client) Estimate(ctx context.Context, token, pageURL, html string) (domain.EstimateResult, error) {
	body := map[string]string{
		"url":  pageURL,
		"html": html,
	}
	var result domain.EstimateResult
	if err := c.do(ctx, http.MethodPost, "/heatmap/estimate", body, token, &result); err != nil {
		return domain.EstimateResult{}, err
	}
	return result, nil
}

// Snapshot aggregates stored telemetry for one site path.
func (c *Client) Snapshot(ctx context.Context, token string, q SnapshotQuery) (domain.HeatmapSnapshot, error) {
	var snap domain.HeatmapSnapshot
	if err := c.do(ctx, http.MethodGet, "/heatmap/snapshot?"+q.values().Encode(), nil, token, &snap); err != nil {
		return domain.HeatmapSnapshot{}, err
	}
	return snap, nil
}

// Compare aggregates two periods of the same selection and returns their changes.
func (c *Client) Compare(ctx context.Context, token string, q SnapshotQuery, a, b Range) (domain.Comparison, error) {
	v := q.values()
	v.Del("start")
	v.Del("end")
	setTime(v, "start_a", a.Start)
	setTime(v, "end_a", a.End)
	setTime(v, "start_b", b.Start)
	setTime(v, "end_b", b.End)
	var cmp domain.Comparison
	if err := c.do(ctx, http.MethodGet, "/heatmap/compare?"+v.Encode(), nil, token, &cmp); err != nil {
		return domain.Comparison{}, err
	}
	return cmp, nil
}

// Insights requests an insight report over the trailing days for a site.
func (c *Client) Insights(ctx context.Context, token, siteID string, days int) (domain.InsightReport, error) {
	v := url.Values{}
	v.Set("site_id", siteID)
	if days > 0 {
		v.Set("days", fmt.Sprintf("%d", days))
	}
	var report domain.InsightReport
	if err := c.do(ctx, http.MethodGet, "/heatmap/insights?"+v.Encode(), nil, token, &report); err != nil {
		return domain.InsightReport{}, err
	}
	return report, nil
}
