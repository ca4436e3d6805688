// Package ensemble blends the single-model forecasters into one demand
// forecast, weighting each model by series diagnostics.
package ensemble

import (
	"fmt"

	"github.com/skuforge/demandcast/internal/api"
	"github.com/skuforge/demandcast/internal/model"
)

// Engine combines the model set into ensemble forecasts.
type Engine struct {
	params api.ForecastParams
}

// NewEngine creates an ensemble engine with given parameters.
func NewEngine(params api.ForecastParams) *Engine {
	return &Engine{params: params}
}

// Params returns the engine parameters.
func (e *Engine) Params() api.ForecastParams { return e.params }

// Diagnostics are the scalar series properties that drive weight selection.
type Diagnostics struct {
	Volatility          float64 `json:"volatility"`          // stdev / mean
	TrendStrength       float64 `json:"trendStrength"`       // |slope| / mean
	SeasonalityStrength float64 `json:"seasonalityStrength"` // stdev(indices) / mean(indices)
}

// Weights is one row of the weight rule table.
type Weights struct {
	Trend         float64 `json:"trend"`
	MovingAverage float64 `json:"movingAverage"`
	Smoothing     float64 `json:"smoothing"`
	Rule          string  `json:"rule"`
}

func (w Weights) forModel(name string) float64 {
	switch name {
	case "trend_seasonal":
		return w.Trend
	case "moving_average":
		return w.MovingAverage
	case "exp_smoothing":
		return w.Smoothing
	}
	return 0
}

// SelectWeights picks the weight triple for the given diagnostics from the
// canonical rule table. Rules are checked in priority order and only the
// first match applies: high volatility favors smoothing, then strong trend
// favors the regression model, then strong seasonality favors smoothing
// moderately, otherwise balanced defaults.
func (e *Engine) SelectWeights(d Diagnostics) Weights {
	switch {
	case d.Volatility > e.params.VolatilityThreshold:
		return Weights{Trend: 0.2, MovingAverage: 0.2, Smoothing: 0.6, Rule: "high_volatility"}
	case d.TrendStrength > e.params.TrendThreshold:
		return Weights{Trend: 0.6, MovingAverage: 0.2, Smoothing: 0.2, Rule: "strong_trend"}
	case d.SeasonalityStrength > e.params.SeasonalityThreshold:
		return Weights{Trend: 0.25, MovingAverage: 0.25, Smoothing: 0.5, Rule: "strong_seasonality"}
	default:
		return Weights{Trend: 0.4, MovingAverage: 0.3, Smoothing: 0.3, Rule: "balanced"}
	}
}

// Diagnose computes volatility, trend strength, and seasonality strength
// from the training quantities. A series too short or too flat to fit a
// trend reports zero for the affected diagnostics rather than failing.
func (e *Engine) Diagnose(training api.TimeSeries) Diagnostics {
	q := training.Quantities()
	m := model.Mean(q)
	if m == 0 {
		return Diagnostics{}
	}

	d := Diagnostics{Volatility: model.StdDev(q) / m}

	slope, intercept, err := model.OLS(q)
	if err != nil {
		return d
	}
	d.TrendStrength = abs(slope) / m

	indices := model.SeasonalIndices(training, slope, intercept)
	present := make(map[int]struct{})
	var observed []float64
	for _, bucket := range training {
		m := bucket.Month()
		if _, ok := present[int(m)]; ok {
			continue
		}
		present[int(m)] = struct{}{}
		observed = append(observed, indices[m])
	}
	if im := model.Mean(observed); im != 0 {
		d.SeasonalityStrength = model.StdDev(observed) / im
	}
	return d
}

// Fit is a trained ensemble: the surviving model fits, their weights, and
// the pricing context needed to project revenue. A Fit is immutable and safe
// for concurrent use, which is what makes it cacheable per SKU.
type Fit struct {
	Diag     Diagnostics
	Weights  Weights
	fits     []model.Fitted
	price    float64 // trailing average price over the training window
	interval float64 // 95% interval half-width from training stdev
	lastKey  string
}

// Fit trains every model in the set on the series. Individual model failures
// drop that model from the blend; the fit fails only when no model survives.
func (e *Engine) Fit(training api.TimeSeries) (*Fit, error) {
	if len(training) == 0 {
		return nil, fmt.Errorf("ensemble: empty training series")
	}
	if err := training.Validate(); err != nil {
		return nil, fmt.Errorf("ensemble: %w", err)
	}

	var fits []model.Fitted
	for _, m := range model.All(e.params) {
		fitted, err := m.Fit(training)
		if err != nil {
			continue
		}
		fits = append(fits, fitted)
	}
	if len(fits) == 0 {
		return nil, fmt.Errorf("ensemble: all forecast models failed")
	}

	q := training.Quantities()
	prices := make([]float64, len(training))
	for i, b := range training {
		prices[i] = b.AveragePrice
	}

	diag := e.Diagnose(training)
	return &Fit{
		Diag:     diag,
		Weights:  e.SelectWeights(diag),
		fits:     fits,
		price:    model.Mean(prices),
		interval: 1.96 * model.StdDev(q),
		lastKey:  training[len(training)-1].MonthKey,
	}, nil
}

// Forecast blends the fitted models over the horizon. Quantities are the
// weight-normalized average of the surviving model forecasts, rounded and
// floored at zero; revenue is quantity times the trailing average price
// (simple mean of bucket average prices, matching the aggregation
// convention).
func (f *Fit) Forecast(horizon int) []api.ForecastPoint {
	predictions := make([][]float64, len(f.fits))
	weightSum := 0.0
	for i, fitted := range f.fits {
		predictions[i] = fitted.Predict(horizon)
		weightSum += f.Weights.forModel(fitted.Name())
	}

	points := make([]api.ForecastPoint, horizon)
	for i := 0; i < horizon; i++ {
		combined := 0.0
		if weightSum > 0 {
			for j, fitted := range f.fits {
				combined += predictions[j][i] * f.Weights.forModel(fitted.Name())
			}
			combined /= weightSum
		}

		qty := int(combined + 0.5)
		if qty < 0 {
			qty = 0
		}

		lower := float64(qty) - f.interval
		if lower < 0 {
			lower = 0
		}

		points[i] = api.ForecastPoint{
			MonthKey:   api.AddMonths(f.lastKey, i+1),
			Quantity:   qty,
			Revenue:    float64(qty) * f.price,
			LowerBound: lower,
			UpperBound: float64(qty) + f.interval,
		}
	}
	return points
}

// TrailingAveragePrice exposes the revenue-projection price basis.
func (f *Fit) TrailingAveragePrice() float64 { return f.price }

// Forecast is the one-shot convenience wrapper around Fit.
func (e *Engine) Forecast(training api.TimeSeries, horizon int) ([]api.ForecastPoint, error) {
	fit, err := e.Fit(training)
	if err != nil {
		return nil, err
	}
	return fit.Forecast(horizon), nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
