package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/marketminer/marketminer/internal/market"
)

// HTTPClient retrieves interest series from a trends HTTP endpoint. The
// endpoint is expected to answer GET requests carrying keyword and timeframe
// query parameters with a JSON body of dated interest points.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClient builds a client for endpoint with a bounded request timeout.
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type interestResponse struct {
	Points []struct {
		Date     string `json:"date"`
		Interest int    `json:"interest"`
	} `json:"points"`
}

// InterestOverTime fetches one keyword's series.
func (c *HTTPClient) InterestOverTime(ctx context.Context, keyword, timeframe string) ([]market.TrendPoint, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("trends: no endpoint configured")
	}

	q := url.Values{}
	q.Set("keyword", keyword)
	q.Set("timeframe", timeframe)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("trends: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trends: requesting %q: %w", keyword, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trends: endpoint returned status %d", resp.StatusCode)
	}

	var body interestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("trends: decoding response: %w", err)
	}

	points := make([]market.TrendPoint, 0, len(body.Points))
	for _, p := range body.Points {
		date, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			return nil, fmt.Errorf("trends: bad date %q: %w", p.Date, err)
		}
		points = append(points, market.TrendPoint{Date: date, Interest: p.Interest})
	}
	return points, nil
}
