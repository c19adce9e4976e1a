package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"FiscalSentinel/internal/model"
)

const defaultFredBaseURL = "https://api.stlouisfed.org/fred"

// FredClient fetches US macroeconomic series from the FRED observations API.
type FredClient struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
}

// NewFredClient creates a FRED client. An optional proxy URL is honored the
// same way as for the market fetcher.
func NewFredClient(apiKey, baseURL, proxyURL string) *FredClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if baseURL == "" {
		baseURL = defaultFredBaseURL
	}
	return &FredClient{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL: baseURL,
		APIKey:  apiKey,
	}
}

func (f *FredClient) Name() string { return "FRED" }

// fredObservations is the response structure of /series/observations.
// Missing observations carry the literal value ".".
type fredObservations struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
	ErrorMessage string `json:"error_message"`
}

func (f *FredClient) fetchObservations(ctx context.Context, seriesID string, start time.Time) ([]model.Point, error) {
	q := url.Values{}
	q.Set("series_id", seriesID)
	q.Set("api_key", f.APIKey)
	q.Set("file_type", "json")
	q.Set("sort_order", "asc")
	q.Set("observation_start", start.Format("2006-01-02"))
	u := fmt.Sprintf("%s/series/observations?%s", f.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fred fetch %s: %w", seriesID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fred read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fred %s: status %d, body: %s", seriesID, resp.StatusCode, string(body))
	}

	var obs fredObservations
	if err := json.Unmarshal(body, &obs); err != nil {
		return nil, fmt.Errorf("fred decode %s: %w", seriesID, err)
	}
	if obs.ErrorMessage != "" {
		return nil, fmt.Errorf("fred api error for %s: %s", seriesID, obs.ErrorMessage)
	}

	points := make([]model.Point, 0, len(obs.Observations))
	for _, o := range obs.Observations {
		if o.Value == "." || o.Value == "" {
			continue // unpublished observation
		}
		var v float64
		if _, err := fmt.Sscanf(o.Value, "%f", &v); err != nil {
			continue
		}
		d, err := time.Parse("2006-01-02", o.Date)
		if err != nil {
			continue
		}
		points = append(points, model.Point{Date: d, Value: v})
	}
	return points, nil
}

// FetchScalar returns the most recent published value of the series.
func (f *FredClient) FetchScalar(ctx context.Context, seriesID string) (float64, error) {
	// Quarterly series publish with a lag, so look back far enough to
	// always catch at least one observation.
	points, err := f.fetchObservations(ctx, seriesID, time.Now().AddDate(-3, 0, 0))
	if err != nil {
		return 0, err
	}
	if len(points) == 0 {
		return 0, fmt.Errorf("fred %s: %w", seriesID, ErrNoData)
	}
	return points[len(points)-1].Value, nil
}

// FetchSeries returns the published observations within the period window.
func (f *FredClient) FetchSeries(ctx context.Context, seriesID, period string) ([]model.Point, error) {
	points, err := f.fetchObservations(ctx, seriesID, periodStart(time.Now(), period))
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("fred %s: %w", seriesID, ErrNoData)
	}
	return points, nil
}
