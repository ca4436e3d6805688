// Package aggregate buckets raw sales observations into monthly time series.
package aggregate

import (
	"math"
	"sort"

	"github.com/skuforge/demandcast/internal/api"
)

// ScopeAll aggregates across every SKU in the observation set.
const ScopeAll = ""

type accumulator struct {
	sold    int
	ordered int
	revenue float64
	cost    float64
	prices  []float64
}

// Monthly groups observations by calendar month and returns an ascending
// time series. Pass ScopeAll to aggregate globally, or a SKU identifier to
// restrict the scope. The result is a pure function of the input: sums are
// order-independent and buckets never merge across calls.
//
// AveragePrice is the arithmetic mean of contributing unit prices, not a
// quantity-weighted mean. That is a deliberate simplification; revenue
// projection downstream relies on the same convention.
func Monthly(observations []api.SalesObservation, sku string) api.TimeSeries {
	byMonth := make(map[string]*accumulator)

	for _, obs := range observations {
		if sku != ScopeAll && obs.SKU != sku {
			continue
		}
		key := api.MonthKey(obs.Date)
		acc, ok := byMonth[key]
		if !ok {
			acc = &accumulator{}
			byMonth[key] = acc
		}
		acc.sold += obs.SoldQuantity
		acc.ordered += obs.OrderedQuantity
		acc.revenue += obs.Revenue()
		acc.cost += float64(obs.SoldQuantity) * obs.UnitCost
		acc.prices = append(acc.prices, obs.UnitPrice)
	}

	keys := make([]string, 0, len(byMonth))
	for key := range byMonth {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	series := make(api.TimeSeries, 0, len(keys))
	for _, key := range keys {
		acc := byMonth[key]
		series = append(series, api.MonthlyBucket{
			MonthKey:        key,
			SoldQuantity:    acc.sold,
			OrderedQuantity: acc.ordered,
			Revenue:         acc.revenue,
			AveragePrice:    mean(acc.prices),
			PriceStdDev:     stddev(acc.prices),
			ProfitMargin:    margin(acc.revenue, acc.cost),
		})
	}
	return series
}

// SKUs returns the distinct SKU identifiers present, sorted for determinism.
func SKUs(observations []api.SalesObservation) []string {
	seen := make(map[string]struct{})
	for _, obs := range observations {
		seen[obs.SKU] = struct{}{}
	}
	skus := make([]string, 0, len(seen))
	for sku := range seen {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
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

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)))
}

func margin(revenue, cost float64) float64 {
	if revenue == 0 {
		return 0
	}
	return (revenue - cost) / revenue
}
