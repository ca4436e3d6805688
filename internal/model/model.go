// Package model implements the three single-model demand forecasters that
// feed the ensemble: trend+seasonal regression, moving average with trend,
// and exponential smoothing.
package model

import (
	"fmt"
	"math"

	"github.com/skuforge/demandcast/internal/api"
)

// Fitted is a trained single model. Predict returns one value per future
// period, already rounded and clamped to be non-negative.
type Fitted interface {
	Name() string
	Predict(horizon int) []float64
}

// Model fits a forecaster to a monthly training series. A model that cannot
// produce a meaningful fit returns an error and is excluded from the
// ensemble; with fewer than 2 points every model degrades to a
// constant-repeat forecast instead of failing.
type Model interface {
	Name() string
	Fit(training api.TimeSeries) (Fitted, error)
}

// All returns the full model set in canonical order:
// trend+seasonal, moving average, exponential smoothing.
func All(params api.ForecastParams) []Model {
	return []Model{
		TrendSeasonal{MinPoints: params.MinModelPoints},
		MovingAverage{WindowMax: params.WindowMax, MinPoints: params.MinModelPoints},
		ExpSmoothing{Alpha: params.Alpha, Beta: params.Beta, Gamma: params.Gamma, SeasonLength: params.SeasonLength, MinPoints: params.MinModelPoints},
	}
}

// minPoints floors the per-model training minimum at 2, the least any of the
// fitting procedures can work with.
func minPoints(configured int) int {
	if configured < 2 {
		return 2
	}
	return configured
}

// constantFit repeats the last observed quantity. Degraded fallback for
// series too short to fit anything.
type constantFit struct {
	name  string
	value float64
}

func (c constantFit) Name() string { return c.name }

func (c constantFit) Predict(horizon int) []float64 {
	out := make([]float64, horizon)
	v := clampRound(c.value)
	for i := range out {
		out[i] = v
	}
	return out
}

func degradedFit(name string, q []float64) (Fitted, error) {
	if len(q) == 0 {
		return nil, fmt.Errorf("%s: empty training series", name)
	}
	return constantFit{name: name, value: q[len(q)-1]}, nil
}

func clampRound(v float64) float64 {
	if v < 0 {
		return 0
	}
	return math.Round(v)
}
