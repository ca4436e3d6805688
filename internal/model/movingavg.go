package model

import (
	"fmt"

	"github.com/skuforge/demandcast/internal/api"
)

// MovingAverage forecasts from trailing moving averages extrapolated by the
// average drift between the first and last window.
type MovingAverage struct {
	WindowMax int
	MinPoints int
}

func (MovingAverage) Name() string { return "moving_average" }

func (m MovingAverage) Fit(training api.TimeSeries) (Fitted, error) {
	q := training.Quantities()
	if len(q) < minPoints(m.MinPoints) {
		return degradedFit(m.Name(), q)
	}

	window := m.WindowMax
	if half := len(q) / 2; half < window {
		window = half
	}
	if window < 1 {
		return nil, fmt.Errorf("moving_average: zero-length window for %d points", len(q))
	}

	// Trailing moving averages over every full window.
	mas := make([]float64, 0, len(q)-window+1)
	for i := 0; i+window <= len(q); i++ {
		mas = append(mas, Mean(q[i:i+window]))
	}

	trend := 0.0
	if len(mas) > 1 {
		trend = (mas[len(mas)-1] - mas[0]) / float64(len(mas)-1)
	}

	return &movingAverageFit{lastMA: mas[len(mas)-1], trend: trend}, nil
}

type movingAverageFit struct {
	lastMA float64
	trend  float64
}

func (f *movingAverageFit) Name() string { return "moving_average" }

func (f *movingAverageFit) Predict(horizon int) []float64 {
	out := make([]float64, horizon)
	for i := 0; i < horizon; i++ {
		out[i] = clampRound(f.lastMA + f.trend*float64(i+1))
	}
	return out
}
