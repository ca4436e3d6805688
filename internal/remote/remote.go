// Package remote selects where a forecast is computed: in-process or on a
// remote computation service. Both venues run the same algorithms; the venue
// changes where the math happens, never the results' semantics.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/skuforge/demandcast/internal/api"
	"github.com/skuforge/demandcast/internal/ensemble"
)

// Result is a forecast plus where it was computed. Degraded marks a result
// that fell back to local computation after a remote failure; callers should
// surface it as reduced confidence, never as an error.
type Result struct {
	Points   []api.ForecastPoint `json:"points"`
	Venue    string              `json:"venue"`
	Degraded bool                `json:"degraded"`
}

// Strategy is an execution venue for the ensemble forecast.
type Strategy interface {
	Name() string
	Forecast(ctx context.Context, training api.TimeSeries, horizon int) (*Result, error)
}

// Local computes forecasts in-process.
type Local struct {
	Engine *ensemble.Engine
}

func (l *Local) Name() string { return "local" }

func (l *Local) Forecast(ctx context.Context, training api.TimeSeries, horizon int) (*Result, error) {
	points, err := l.Engine.Forecast(training, horizon)
	if err != nil {
		return nil, err
	}
	return &Result{Points: points, Venue: "local"}, nil
}

// Client calls the remote computation service with a bounded timeout and
// falls back to local computation on any failure. A remote outage can only
// degrade a result, never fail it.
type Client struct {
	baseURL    string
	http       *http.Client
	fallback   *Local
	onFallback func() // optional hook for instrumentation
}

// NewClient creates a remote-venue strategy. timeout bounds each remote
// call; onFallback, if non-nil, is invoked once per degraded result.
func NewClient(baseURL string, timeout time.Duration, engine *ensemble.Engine, onFallback func()) *Client {
	return &Client{
		baseURL:    baseURL,
		http:       &http.Client{Timeout: timeout},
		fallback:   &Local{Engine: engine},
		onFallback: onFallback,
	}
}

func (c *Client) Name() string { return "remote" }

// forecastRequest mirrors the remote service's wire contract.
type forecastRequest struct {
	SalesData []salesRecord `json:"salesData"`
	Periods   int           `json:"periods"`
}

type salesRecord struct {
	Date  string  `json:"date"`
	Sales float64 `json:"sales"`
}

type forecastResponse struct {
	Success  bool `json:"success"`
	Forecast []struct {
		Date       string  `json:"date"`
		Sales      float64 `json:"sales"`
		UpperBound float64 `json:"upperBound"`
		LowerBound float64 `json:"lowerBound"`
	} `json:"forecast"`
	Error string `json:"error"`
}

func (c *Client) Forecast(ctx context.Context, training api.TimeSeries, horizon int) (*Result, error) {
	points, err := c.remoteForecast(ctx, training, horizon)
	if err != nil {
		log.Printf("remote forecast failed, falling back to local: %v", err)
		if c.onFallback != nil {
			c.onFallback()
		}
		result, localErr := c.fallback.Forecast(ctx, training, horizon)
		if localErr != nil {
			return nil, localErr
		}
		result.Degraded = true
		return result, nil
	}
	return &Result{Points: points, Venue: "remote"}, nil
}

func (c *Client) remoteForecast(ctx context.Context, training api.TimeSeries, horizon int) ([]api.ForecastPoint, error) {
	if len(training) == 0 {
		return nil, fmt.Errorf("empty training series")
	}

	reqBody := forecastRequest{Periods: horizon}
	for _, bucket := range training {
		reqBody.SalesData = append(reqBody.SalesData, salesRecord{
			Date:  bucket.MonthKey + "-01",
			Sales: float64(bucket.SoldQuantity),
		})
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/forecast", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote service returned status %d", resp.StatusCode)
	}

	var parsed forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("invalid remote response: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("remote service error: %s", parsed.Error)
	}
	if len(parsed.Forecast) < horizon {
		return nil, fmt.Errorf("remote service returned %d periods, want %d", len(parsed.Forecast), horizon)
	}

	// Revenue projection stays local: the remote service forecasts
	// quantities only, and the trailing-average-price convention must hold
	// regardless of venue.
	prices := 0.0
	for _, bucket := range training {
		prices += bucket.AveragePrice
	}
	trailingPrice := prices / float64(len(training))
	lastKey := training[len(training)-1].MonthKey

	points := make([]api.ForecastPoint, horizon)
	for i := 0; i < horizon; i++ {
		qty := int(math.Round(parsed.Forecast[i].Sales))
		if qty < 0 {
			qty = 0
		}
		lower := parsed.Forecast[i].LowerBound
		if lower < 0 {
			lower = 0
		}
		points[i] = api.ForecastPoint{
			MonthKey:   api.AddMonths(lastKey, i+1),
			Quantity:   qty,
			Revenue:    float64(qty) * trailingPrice,
			LowerBound: lower,
			UpperBound: parsed.Forecast[i].UpperBound,
		}
	}
	return points, nil
}
