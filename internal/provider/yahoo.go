package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"FiscalSentinel/internal/model"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooClient fetches live quotes and price history from the Yahoo Finance
// public chart API. It serves both scalar and series requests.
type YahooClient struct {
	Client  *http.Client
	BaseURL string
}

// NewYahooClient creates a Yahoo Finance client.
func NewYahooClient(proxyURL string) *YahooClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooClient{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL: defaultYahooBaseURL,
	}
}

func (y *YahooClient) Name() string { return "yahoo" }

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []interface{} `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func (y *YahooClient) fetchChart(ctx context.Context, ticker, interval, rng string) ([]model.Point, error) {
	u := fmt.Sprintf("%s/%s?interval=%s&range=%s",
		y.BaseURL, url.PathEscape(ticker), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, ErrNoData)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, ErrNoData)
	}
	closes := result.Indicators.Quote[0].Close

	points := make([]model.Point, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) {
			break
		}
		c, ok := toFloat(closes[i])
		if !ok {
			continue // null close (holiday, halted session)
		}
		points = append(points, model.Point{
			Date:  time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Value: c,
		})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, ErrNoData)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

// FetchScalar returns the latest close for the ticker.
func (y *YahooClient) FetchScalar(ctx context.Context, ticker string) (float64, error) {
	points, err := y.fetchChart(ctx, ticker, "1d", "5d")
	if err != nil {
		return 0, err
	}
	return points[len(points)-1].Value, nil
}

// FetchSeries returns daily closes over the period window.
func (y *YahooClient) FetchSeries(ctx context.Context, ticker, period string) ([]model.Point, error) {
	rng := period
	switch period {
	case "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y":
	default:
		rng = "6mo"
	}
	return y.fetchChart(ctx, ticker, "1d", rng)
}
