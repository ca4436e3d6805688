package model

import (
	"fmt"
	"math"
	"time"

	"github.com/skuforge/demandcast/internal/api"
)

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := Mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)))
}

// OLS fits quantity on period index by ordinary least squares.
func OLS(q []float64) (slope, intercept float64, err error) {
	n := len(q)
	if n < 2 {
		return 0, 0, fmt.Errorf("ols: need at least 2 points, got %d", n)
	}

	xMean := float64(n-1) / 2
	yMean := Mean(q)

	num, den := 0.0, 0.0
	for i, y := range q {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0, 0, fmt.Errorf("ols: singular regression")
	}

	slope = num / den
	intercept = yMean - slope*xMean
	return slope, intercept, nil
}

// SeasonalIndices computes a per-calendar-month multiplicative index from a
// training series and its fitted trend line. Each index is the mean ratio of
// observed quantity to the trend value for that month; months without
// history default to 1.0. For a trendless series the trend line collapses to
// the overall mean, so the index reduces to monthly mean over overall mean.
func SeasonalIndices(training api.TimeSeries, slope, intercept float64) map[time.Month]float64 {
	sums := make(map[time.Month]float64)
	counts := make(map[time.Month]int)

	for i, bucket := range training {
		base := intercept + slope*float64(i)
		if math.Abs(base) < 1e-9 {
			continue
		}
		m := bucket.Month()
		sums[m] += float64(bucket.SoldQuantity) / base
		counts[m]++
	}

	indices := make(map[time.Month]float64, 12)
	for m := time.January; m <= time.December; m++ {
		if counts[m] > 0 {
			indices[m] = sums[m] / float64(counts[m])
		} else {
			indices[m] = 1.0
		}
	}
	return indices
}
