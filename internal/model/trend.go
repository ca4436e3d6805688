package model

import (
	"time"

	"github.com/skuforge/demandcast/internal/api"
)

// TrendSeasonal forecasts with an OLS trend line scaled by per-calendar-month
// seasonal indices. Series shorter than MinPoints degrade to a constant-repeat
// forecast.
type TrendSeasonal struct {
	MinPoints int
}

func (TrendSeasonal) Name() string { return "trend_seasonal" }

func (m TrendSeasonal) Fit(training api.TimeSeries) (Fitted, error) {
	q := training.Quantities()
	if len(q) < minPoints(m.MinPoints) {
		return degradedFit(m.Name(), q)
	}

	slope, intercept, err := OLS(q)
	if err != nil {
		return nil, err
	}

	last, err := api.ParseMonthKey(training[len(training)-1].MonthKey)
	if err != nil {
		return nil, err
	}

	return &trendSeasonalFit{
		n:         len(q),
		slope:     slope,
		intercept: intercept,
		indices:   SeasonalIndices(training, slope, intercept),
		lastMonth: last,
	}, nil
}

type trendSeasonalFit struct {
	n         int
	slope     float64
	intercept float64
	indices   map[time.Month]float64
	lastMonth time.Time
}

func (f *trendSeasonalFit) Name() string { return "trend_seasonal" }

// Predict extrapolates the trend line through periods n, n+1, ... and scales
// each by the seasonal index of its calendar month.
func (f *trendSeasonalFit) Predict(horizon int) []float64 {
	out := make([]float64, horizon)
	for i := 0; i < horizon; i++ {
		trendValue := f.intercept + f.slope*float64(f.n+i)
		month := f.lastMonth.AddDate(0, i+1, 0).Month()
		out[i] = clampRound(trendValue * f.indices[month])
	}
	return out
}

// Slope exposes the fitted trend slope for ensemble diagnostics.
func (f *trendSeasonalFit) Slope() float64 { return f.slope }

// Indices exposes the fitted seasonal indices for ensemble diagnostics.
func (f *trendSeasonalFit) Indices() map[time.Month]float64 { return f.indices }
