// Package validate back-tests the ensemble forecaster against held-out
// history and reports standard error metrics.
package validate

import (
	"fmt"
	"math"

	"github.com/skuforge/demandcast/internal/api"
	"github.com/skuforge/demandcast/internal/ensemble"
)

// Engine evaluates forecast accuracy via a chronological train/validation
// split.
type Engine struct {
	params   api.ForecastParams
	ensemble *ensemble.Engine
	workers  int
}

// NewEngine creates a validation engine. workers bounds batch parallelism;
// values below 1 fall back to serial execution.
func NewEngine(params api.ForecastParams, ens *ensemble.Engine, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{params: params, ensemble: ens, workers: workers}
}

// EvaluateAccuracy splits the series 70/30, forecasts the validation window
// from the training prefix, and scores the forecast. Below-minimum input
// yields a zero-metric report with an explanation instead of an error, so a
// batch caller never has to abort.
func (e *Engine) EvaluateAccuracy(series api.TimeSeries) *api.AccuracyReport {
	n := len(series)
	if n < e.params.MinSeries {
		return insufficientReport(0, 0,
			fmt.Sprintf("insufficient data for accuracy assessment: need at least %d months, got %d", e.params.MinSeries, n))
	}

	split := int(float64(n) * e.params.TrainRatio)
	training := series[:split]
	validation := series[split:]

	if len(training) < e.params.MinTraining || len(validation) < e.params.MinValidation {
		return insufficientReport(len(training), len(validation),
			fmt.Sprintf("insufficient split: %d training / %d validation months, need %d/%d",
				len(training), len(validation), e.params.MinTraining, e.params.MinValidation))
	}

	fit, err := e.ensemble.Fit(training)
	if err != nil {
		return insufficientReport(len(training), len(validation),
			fmt.Sprintf("forecast models failed on training window: %v", err))
	}
	points := fit.Forecast(len(validation))

	mae, mape, rmse := 0.0, 0.0, 0.0
	mapeCount := 0
	comparison := make([]api.ComparisonPoint, len(validation))
	for i, bucket := range validation {
		actual := float64(bucket.SoldQuantity)
		forecast := float64(points[i].Quantity)
		diff := actual - forecast

		mae += math.Abs(diff)
		rmse += diff * diff
		// Zero-actual months are skipped in the MAPE denominator only.
		// This understates error on sparse series; it matches the source
		// system and is kept deliberately.
		if actual > 0 {
			mape += math.Abs(diff/actual) * 100
			mapeCount++
		}

		comparison[i] = api.ComparisonPoint{
			MonthKey: bucket.MonthKey,
			Actual:   actual,
			Forecast: forecast,
		}
	}
	mae /= float64(len(validation))
	rmse = math.Sqrt(rmse / float64(len(validation)))
	if mapeCount > 0 {
		mape /= float64(mapeCount)
	}

	category := Categorize(mape)
	return &api.AccuracyReport{
		MAE:              mae,
		MAPE:             mape,
		RMSE:             rmse,
		Category:         category,
		Confidence:       confidence(len(training), len(validation), category),
		Recommendation:   recommendation(category, mape),
		TrainingMonths:   len(training),
		ValidationMonths: len(validation),
		DataPoints:       len(validation),
		Comparison:       comparison,
	}
}

// Categorize maps a back-test MAPE to a reliability category.
func Categorize(mape float64) string {
	switch {
	case mape <= 10:
		return api.CategoryGood
	case mape <= 25:
		return api.CategoryMedium
	default:
		return api.CategoryPoor
	}
}

// confidence blends data volume with back-test accuracy: six validation
// months and a year of training saturate the volume term, and the category
// scales it down as accuracy degrades.
func confidence(trainingMonths, validationMonths int, category string) float64 {
	volume := 0.4*math.Min(float64(validationMonths)/6, 1) +
		0.6*math.Min(float64(trainingMonths)/12, 1)

	factor := 0.6
	switch category {
	case api.CategoryGood:
		factor = 1.0
	case api.CategoryMedium:
		factor = 0.8
	}
	return volume * factor
}

func recommendation(category string, mape float64) string {
	switch category {
	case api.CategoryGood:
		return fmt.Sprintf("Good forecast reliability (MAPE %.1f%%): the ensemble forecast is dependable for planning.", mape)
	case api.CategoryMedium:
		return fmt.Sprintf("Medium forecast reliability (MAPE %.1f%%): use forecasts with manual review of large orders.", mape)
	default:
		return fmt.Sprintf("Poor forecast reliability (MAPE %.1f%%): treat forecasts as rough guidance and gather more history.", mape)
	}
}

func insufficientReport(trainingMonths, validationMonths int, reason string) *api.AccuracyReport {
	return &api.AccuracyReport{
		Category:         api.CategoryPoor,
		Recommendation:   reason,
		TrainingMonths:   trainingMonths,
		ValidationMonths: validationMonths,
		InsufficientData: true,
	}
}
