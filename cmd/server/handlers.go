package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skuforge/demandcast/internal/aggregate"
	"github.com/skuforge/demandcast/internal/api"
	"github.com/skuforge/demandcast/internal/correlate"
	"github.com/skuforge/demandcast/internal/remote"
	"github.com/skuforge/demandcast/pkg/otel"
)

const maxBodyBytes = 8 << 20

// analysisRequest is the shared request shape: either inline observations
// (stateless, the remote-service convention) or a SKU resolved against the
// observation store. An empty SKU means the global scope.
type analysisRequest struct {
	Observations []api.SalesObservation `json:"observations,omitempty"`
	SKU          string                 `json:"sku,omitempty"`
	Periods      int                    `json:"periods,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, req *analysisRequest) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if !s.limiter.Allow() {
		w.Header().Set("Retry-After", "10")
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return false
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

// observations resolves the request's observation set: inline records win,
// otherwise the store is consulted for the requested scope.
func (s *Server) observations(r *http.Request, req *analysisRequest) ([]api.SalesObservation, error) {
	if len(req.Observations) > 0 {
		return req.Observations, nil
	}
	return s.store.Load(r.Context(), req.SKU)
}

// handleObservations ingests validated observations into the store and
// invalidates the cached trained model for every affected SKU. Skipping the
// invalidation would let stale models serve outdated forecasts.
func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	if len(req.Observations) == 0 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "no observations provided"})
		return
	}

	if err := s.store.Append(r.Context(), req.Observations); err != nil {
		log.Printf("Observation append failed: %v", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to store observations"})
		return
	}

	for _, sku := range aggregate.SKUs(req.Observations) {
		s.modelCache.Invalidate(sku)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"ingested": len(req.Observations),
	})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	horizon := req.Periods
	if horizon <= 0 {
		horizon = s.forecaster.Params().DefaultHorizon
	}

	ctx, span := otel.StartSpan(r.Context(), "demandcast", "forecast")
	defer span.End()

	obs, err := s.observations(r, &req)
	if err != nil {
		otel.RecordError(span, err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load observations"})
		return
	}
	training := aggregate.Monthly(obs, req.SKU)
	if len(training) == 0 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "no sales data for requested scope"})
		return
	}

	start := time.Now()
	result, err := s.forecastSeries(ctx, req.SKU, len(req.Observations) == 0, training, horizon)
	s.metrics.ForecastSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.ForecastFailures.Inc()
		otel.RecordError(span, err)
		respondJSON(w, http.StatusOK, errorResponse{Error: err.Error()})
		return
	}
	s.metrics.ForecastsTotal.Inc()

	span.SetAttributes(otel.ForecastAttributes(req.SKU, horizon, len(training), result.Venue, result.Degraded)...)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"venue":    result.Venue,
		"degraded": result.Degraded,
		"forecast": result.Points,
	})
}

// forecastSeries runs the configured execution strategy. The trained-model
// cache only serves store-backed single-SKU requests on the local venue;
// inline observations are one-shot and never cached.
func (s *Server) forecastSeries(ctx context.Context, sku string, fromStore bool, training api.TimeSeries, horizon int) (*remote.Result, error) {
	cacheable := fromStore && sku != "" && s.strategy.Name() == "local"
	if cacheable {
		if fit, ok := s.modelCache.Get(sku); ok {
			s.metrics.CacheHits.Inc()
			return &remote.Result{Points: fit.Forecast(horizon), Venue: "local"}, nil
		}
		s.metrics.CacheMisses.Inc()

		fit, err := s.forecaster.Fit(training)
		if err != nil {
			return nil, err
		}
		s.modelCache.Set(sku, fit)
		return &remote.Result{Points: fit.Forecast(horizon), Venue: "local"}, nil
	}

	if s.strategy.Name() == "remote" {
		s.metrics.RemoteCalls.Inc()
	}
	return s.strategy.Forecast(ctx, training, horizon)
}

func (s *Server) handleAccuracy(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	_, span := otel.StartSpan(r.Context(), "demandcast", "accuracy")
	defer span.End()

	obs, err := s.observations(r, &req)
	if err != nil {
		otel.RecordError(span, err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load observations"})
		return
	}

	report := s.validator.EvaluateAccuracy(aggregate.Monthly(obs, req.SKU))
	s.metrics.AccuracyEvaluations.Inc()
	span.SetAttributes(otel.AccuracyAttributes(req.SKU, report.Category, report.MAPE, report.TrainingMonths, report.ValidationMonths)...)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": !report.InsufficientData,
		"report":  report,
	})
}

func (s *Server) handleAccuracyBatch(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	ctx, span := otel.StartSpan(r.Context(), "demandcast", "accuracy_batch")
	defer span.End()

	obs, err := s.observations(r, &req)
	if err != nil {
		otel.RecordError(span, err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load observations"})
		return
	}

	batch := s.validator.EvaluateAccuracyBatch(ctx, obs)
	s.metrics.BatchRuns.Inc()
	for category, count := range batch.CategoryHistogram {
		s.metrics.BatchSKUsByCategory.WithLabelValues(category).Add(float64(count))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"report":  batch,
	})
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	_, span := otel.StartSpan(r.Context(), "demandcast", "correlation")
	defer span.End()

	obs, err := s.observations(r, &req)
	if err != nil {
		otel.RecordError(span, err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load observations"})
		return
	}

	series := aggregate.Monthly(obs, req.SKU)
	result := correlate.PriceSales(series)
	promo := correlate.PromotionalImpact(series)
	s.metrics.CorrelationRuns.Inc()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     !result.InsufficientData,
		"correlation": result,
		"promoImpact": promo,
	})
}

func (s *Server) metricsHandler() http.Handler {
	handler := promhttp.Handler()
	if !s.metricsAuth.enabled {
		return handler
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.metricsAuth.user || pass != s.metricsAuth.password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Metrics"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
