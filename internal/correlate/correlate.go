// Package correlate quantifies the statistical relationship between price
// changes and sales volume changes.
package correlate

import (
	"fmt"
	"math"

	"github.com/skuforge/demandcast/internal/api"
)

// PriceSales computes month-over-month price/quantity deltas, the Pearson
// correlation between them, and price elasticity. The first month has no
// prior reference and is dropped; at least 2 delta points must remain.
// Constant prices leave nothing to correlate, so that case returns the
// insufficient-variation result rather than a spurious coefficient.
func PriceSales(series api.TimeSeries) *api.CorrelationResult {
	deltas := Deltas(series)
	if len(deltas) < 2 {
		return &api.CorrelationResult{
			Narrative:        fmt.Sprintf("insufficient history for price correlation: need at least 2 month-over-month changes, got %d", len(deltas)),
			InsufficientData: true,
		}
	}

	priceChanges := make([]float64, len(deltas))
	salesChanges := make([]float64, len(deltas))
	priceVaries := false
	for i, d := range deltas {
		priceChanges[i] = d.PriceChange
		salesChanges[i] = d.SalesChange
		if d.PriceChange != 0 {
			priceVaries = true
		}
	}
	if !priceVaries {
		return &api.CorrelationResult{
			Deltas:           deltas,
			Narrative:        "prices did not change over the period, so no price/sales relationship can be measured",
			InsufficientData: true,
		}
	}

	r := pearson(priceChanges, salesChanges)
	n := float64(len(deltas))
	elast := elasticity(deltas)

	return &api.CorrelationResult{
		Coefficient:     r,
		Confidence:      math.Min(n/12, 1) * (0.5 + 0.5*math.Abs(r)),
		PriceElasticity: elast,
		Deltas:          deltas,
		Narrative:       narrative(r, elast),
	}
}

// Deltas returns the fractional month-over-month price and quantity changes
// for every month after the first. A zero previous value yields a zero
// change rather than a division error.
func Deltas(series api.TimeSeries) []api.DeltaPoint {
	if len(series) < 2 {
		return nil
	}
	deltas := make([]api.DeltaPoint, 0, len(series)-1)
	for t := 1; t < len(series); t++ {
		deltas = append(deltas, api.DeltaPoint{
			MonthKey:    series[t].MonthKey,
			PriceChange: fractionalChange(series[t-1].AveragePrice, series[t].AveragePrice),
			SalesChange: fractionalChange(float64(series[t-1].SoldQuantity), float64(series[t].SoldQuantity)),
		})
	}
	return deltas
}

func fractionalChange(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev
}

// pearson computes the correlation coefficient, 0 when either series has no
// variance.
func pearson(x, y []float64) float64 {
	xMean, yMean := mean(x), mean(y)

	cov, xVar, yVar := 0.0, 0.0, 0.0
	for i := range x {
		dx := x[i] - xMean
		dy := y[i] - yMean
		cov += dx * dy
		xVar += dx * dx
		yVar += dy * dy
	}
	if xVar == 0 || yVar == 0 {
		return 0
	}
	return cov / math.Sqrt(xVar*yVar)
}

// elasticity is the mean ratio of sales change to price change over months
// where the price actually moved; months with no price change contribute
// nothing.
func elasticity(deltas []api.DeltaPoint) float64 {
	sum, count := 0.0, 0
	for _, d := range deltas {
		if d.PriceChange == 0 {
			continue
		}
		sum += d.SalesChange / d.PriceChange
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func narrative(r, elast float64) string {
	strength := "very weak"
	switch {
	case math.Abs(r) >= 0.7:
		strength = "strong"
	case math.Abs(r) >= 0.4:
		strength = "moderate"
	case math.Abs(r) >= 0.2:
		strength = "weak"
	}

	direction := "no"
	if r > 0 {
		direction = "positive"
	} else if r < 0 {
		direction = "negative"
	}

	return fmt.Sprintf("Price changes show a %s %s correlation with sales volume (r=%.2f, elasticity %.2f).",
		strength, direction, r, elast)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
