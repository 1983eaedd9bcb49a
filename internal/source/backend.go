package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/odclab/dcmon/internal/lib/logger/sl"
	"github.com/odclab/dcmon/internal/model"
)

// Client fetches raw records from the backend dashboard API. The backend is
// treated as an opaque data source with a known JSON shape; all derivation
// happens on our side.
type Client struct {
	log     *slog.Logger
	baseURL string
	client  *http.Client
}

func NewClient(log *slog.Logger, baseURL string, timeout time.Duration) *Client {
	return &Client{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// CapacityHistory returns all saved monthly capacity rows.
func (c *Client) CapacityHistory(ctx context.Context) ([]model.CapacityRow, error) {
	body, err := c.get(ctx, "/api/power-capacity", nil)
	if err != nil {
		return nil, err
	}

	var rows []model.CapacityRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal capacity history: %w", err)
	}
	return rows, nil
}

// CurrentPrevious holds the live current-month row and the saved previous
// month row; previous is nil before the first auto-save.
type CurrentPrevious struct {
	Current  *model.CapacityRow `json:"current"`
	Previous *model.CapacityRow `json:"previous"`
}

func (c *Client) CurrentPrevious(ctx context.Context) (CurrentPrevious, error) {
	body, err := c.get(ctx, "/api/power-capacity/current-previous", nil)
	if err != nil {
		return CurrentPrevious{}, err
	}

	var cp CurrentPrevious
	if err := json.Unmarshal(body, &cp); err != nil {
		return CurrentPrevious{}, fmt.Errorf("failed to unmarshal current/previous capacity: %w", err)
	}
	return cp, nil
}

// PowerReadings returns the recent power samples for a site.
func (c *Client) PowerReadings(ctx context.Context, site string) ([]model.Reading, error) {
	return c.readings(ctx, "/api/power", site)
}

// TemperatureReadings returns the recent temperature samples for a site.
func (c *Client) TemperatureReadings(ctx context.Context, site string) ([]model.Reading, error) {
	return c.readings(ctx, "/api/temperature", site)
}

// MonthlyReadings returns a site's readings over the full historical range
// the backend keeps, unfiltered by month; fetched once per analysis run.
func (c *Client) MonthlyReadings(ctx context.Context, site string) ([]model.Reading, error) {
	return c.readings(ctx, "/api/monthly-power-data", site)
}

// ScanResults returns the latest network-scan inventory as-is.
func (c *Client) ScanResults(ctx context.Context) (json.RawMessage, error) {
	body, err := c.get(ctx, "/api/nmap-scan", nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("scan endpoint returned invalid JSON")
	}
	return json.RawMessage(body), nil
}

// Health probes the backend; anything below 500 counts as reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/power-capacity", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("backend unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) readings(ctx context.Context, path, site string) ([]model.Reading, error) {
	query := url.Values{}
	if site != "" {
		query.Set("site", site)
	}

	body, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	return c.decodeReadings(body)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Fix Python-style booleans (True/False -> true/false) the backend
	// occasionally emits in saved rows
	bodyStr := string(bytes.TrimSpace(body))
	bodyStr = strings.ReplaceAll(bodyStr, ":True,", ":true,")
	bodyStr = strings.ReplaceAll(bodyStr, ":True}", ":true}")
	bodyStr = strings.ReplaceAll(bodyStr, ":False,", ":false,")
	bodyStr = strings.ReplaceAll(bodyStr, ":False}", ":false}")

	return []byte(bodyStr), nil
}

type readingWire struct {
	Created  string `json:"created"`
	Location string `json:"location"`
	Reading  any    `json:"reading"`
}

// decodeReadings converts wire records to model readings. Records with an
// unparseable timestamp or a non-numeric value are excluded rather than
// zero-filled, so they never dilute sums or counts downstream.
func (c *Client) decodeReadings(body []byte) ([]model.Reading, error) {
	var wire []readingWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("failed to unmarshal readings: %w", err)
	}

	readings := make([]model.Reading, 0, len(wire))
	for _, w := range wire {
		created, err := parseTimestamp(w.Created)
		if err != nil {
			c.log.Debug("skipping reading with bad timestamp",
				slog.String("created", w.Created),
				slog.String("location", w.Location),
				sl.Err(err),
			)
			continue
		}

		value, ok := toFloat(w.Reading)
		if !ok {
			c.log.Debug("skipping reading with non-numeric value",
				slog.String("location", w.Location),
			)
			continue
		}

		readings = append(readings, model.Reading{
			Created:  created,
			Location: w.Location,
			Value:    value,
		})
	}

	return readings, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999", // Python isoformat without zone info
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
