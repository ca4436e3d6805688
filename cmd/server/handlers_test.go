package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/skuforge/demandcast/internal/api"
	"github.com/skuforge/demandcast/internal/cache"
	"github.com/skuforge/demandcast/internal/ensemble"
	"github.com/skuforge/demandcast/internal/metrics"
	"github.com/skuforge/demandcast/internal/remote"
	"github.com/skuforge/demandcast/internal/store"
	"github.com/skuforge/demandcast/internal/validate"
)

var (
	testServerOnce sync.Once
	testServer     *Server
)

// newTestServer builds one shared Server; metrics register against the global
// Prometheus registry and must only be created once per test binary.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	testServerOnce.Do(func() {
		params := api.DefaultForecastParams()
		forecaster := ensemble.NewEngine(params)
		modelCache, err := cache.NewModelCache[*ensemble.Fit](16)
		if err != nil {
			t.Fatalf("Failed to create model cache: %v", err)
		}
		testServer = &Server{
			store:      store.NewMemoryStore(""),
			modelCache: modelCache,
			forecaster: forecaster,
			validator:  validate.NewEngine(params, forecaster, 2),
			strategy:   &remote.Local{Engine: forecaster},
			metrics:    metrics.New(),
			limiter:    rate.NewLimiter(rate.Limit(1000), 2000),
		}
	})
	return testServer
}

func testObservations(sku string, months int) []api.SalesObservation {
	start := time.Date(2023, time.January, 15, 0, 0, 0, 0, time.UTC)
	observations := make([]api.SalesObservation, months)
	for i := range observations {
		observations[i] = api.SalesObservation{
			Date:         start.AddDate(0, i, 0),
			SKU:          sku,
			SoldQuantity: 100 + 5*i,
			UnitPrice:    10,
		}
	}
	return observations
}

func postJSON(t *testing.T, handler http.HandlerFunc, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestHandleForecast_InlineObservations(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv.handleForecast, analysisRequest{
		Observations: testObservations("SKU-1", 12),
		Periods:      6,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success  bool                `json:"success"`
		Venue    string              `json:"venue"`
		Forecast []api.ForecastPoint `json:"forecast"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("Expected success")
	}
	if resp.Venue != "local" {
		t.Errorf("Expected venue local, got %s", resp.Venue)
	}
	if len(resp.Forecast) != 6 {
		t.Errorf("Expected 6 forecast points, got %d", len(resp.Forecast))
	}
}

func TestHandleForecast_EmptyScope(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv.handleForecast, analysisRequest{SKU: "no-such-sku"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for empty scope, got %d", w.Code)
	}
}

func TestHandleForecast_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/forecast", nil)
	w := httptest.NewRecorder()
	srv.handleForecast(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestHandleObservations_IngestInvalidatesCache(t *testing.T) {
	srv := newTestServer(t)

	// Ingest, forecast from the store (populates the cache), ingest again.
	w := postJSON(t, srv.handleObservations, analysisRequest{
		Observations: testObservations("SKU-CACHE", 12),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on ingest, got %d: %s", w.Code, w.Body.String())
	}

	w = postJSON(t, srv.handleForecast, analysisRequest{SKU: "SKU-CACHE", Periods: 3})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on forecast, got %d: %s", w.Code, w.Body.String())
	}
	if _, ok := srv.modelCache.Get("SKU-CACHE"); !ok {
		t.Fatal("Expected trained model cached after store-backed forecast")
	}

	w = postJSON(t, srv.handleObservations, analysisRequest{
		Observations: []api.SalesObservation{{
			Date:         time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
			SKU:          "SKU-CACHE",
			SoldQuantity: 500,
			UnitPrice:    10,
		}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on re-ingest, got %d", w.Code)
	}
	if _, ok := srv.modelCache.Get("SKU-CACHE"); ok {
		t.Error("Expected cache invalidated after new observations")
	}
}

func TestHandleObservations_EmptyBody(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv.handleObservations, analysisRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for empty ingest, got %d", w.Code)
	}
}

func TestHandleAccuracy_InlineObservations(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv.handleAccuracy, analysisRequest{
		Observations: testObservations("SKU-ACC", 12),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool               `json:"success"`
		Report  api.AccuracyReport `json:"report"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Errorf("Expected success, got report: %+v", resp.Report)
	}
	if resp.Report.TrainingMonths != 8 || resp.Report.ValidationMonths != 4 {
		t.Errorf("Expected 8/4 split, got %d/%d", resp.Report.TrainingMonths, resp.Report.ValidationMonths)
	}
}

func TestHandleAccuracyBatch_PerSKUIsolation(t *testing.T) {
	srv := newTestServer(t)

	observations := append(testObservations("SKU-FULL", 14), testObservations("SKU-SHORT", 3)...)
	w := postJSON(t, srv.handleAccuracyBatch, analysisRequest{Observations: observations})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Report api.BatchAccuracyReport `json:"report"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Report.TotalSKUs != 2 {
		t.Errorf("Expected 2 SKUs, got %d", resp.Report.TotalSKUs)
	}
	short := resp.Report.PerSKU["SKU-SHORT"]
	if short == nil || !short.InsufficientData {
		t.Errorf("Expected insufficient report for short SKU, got %+v", short)
	}
}

func TestHandleCorrelation_InlineObservations(t *testing.T) {
	srv := newTestServer(t)

	// Alternate price levels so the correlation has something to measure.
	observations := testObservations("SKU-COR", 12)
	for i := range observations {
		if i%2 == 1 {
			observations[i].UnitPrice = 12
			observations[i].SoldQuantity = 80
		}
	}

	w := postJSON(t, srv.handleCorrelation, analysisRequest{Observations: observations})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success     bool                  `json:"success"`
		Correlation api.CorrelationResult `json:"correlation"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Errorf("Expected success, got: %s", resp.Correlation.Narrative)
	}
}

func TestDecodeRequest_InvalidJSON(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/forecast", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	srv.handleForecast(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid JSON, got %d", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected body OK, got %q", w.Body.String())
	}
}
