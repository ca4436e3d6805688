package model

import (
	"github.com/skuforge/demandcast/internal/api"
)

// ExpSmoothing is a Holt-Winters-style level/trend/season forecaster with
// fixed smoothing constants. Seasonal slots are additive and initialized
// from the raw first-year observations (0 for absent slots); the update pass
// runs once through the training data. This is the source system's fixed
// approximation, kept as-is rather than a textbook Holt-Winters.
type ExpSmoothing struct {
	Alpha        float64
	Beta         float64
	Gamma        float64
	SeasonLength int
	MinPoints    int
}

func (ExpSmoothing) Name() string { return "exp_smoothing" }

func (m ExpSmoothing) Fit(training api.TimeSeries) (Fitted, error) {
	q := training.Quantities()
	if len(q) < minPoints(m.MinPoints) {
		return degradedFit(m.Name(), q)
	}

	seasonLen := m.SeasonLength
	if seasonLen <= 0 {
		seasonLen = 12
	}

	season := make([]float64, seasonLen)
	for i := 0; i < seasonLen && i < len(q); i++ {
		season[i] = q[i]
	}

	level := q[0]
	trend := 0.0
	for t := 1; t < len(q); t++ {
		s := t % seasonLen
		prevLevel := level
		level = m.Alpha*(q[t]-season[s]) + (1-m.Alpha)*(level+trend)
		trend = m.Beta*(level-prevLevel) + (1-m.Beta)*trend
		season[s] = m.Gamma*(q[t]-level) + (1-m.Gamma)*season[s]
	}

	return &expSmoothingFit{
		n:      len(q),
		level:  level,
		trend:  trend,
		season: season,
	}, nil
}

type expSmoothingFit struct {
	n      int
	level  float64
	trend  float64
	season []float64
}

func (f *expSmoothingFit) Name() string { return "exp_smoothing" }

func (f *expSmoothingFit) Predict(horizon int) []float64 {
	out := make([]float64, horizon)
	for i := 0; i < horizon; i++ {
		slot := (f.n + i) % len(f.season)
		out[i] = clampRound(f.level + f.trend*float64(i+1) + f.season[slot])
	}
	return out
}
