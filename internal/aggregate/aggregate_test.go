package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/skuforge/demandcast/internal/api"
)

func obs(sku string, year int, month time.Month, day, sold int, price, cost float64) api.SalesObservation {
	return api.SalesObservation{
		Date:            time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		SKU:             sku,
		SoldQuantity:    sold,
		OrderedQuantity: sold + 2,
		UnitPrice:       price,
		UnitCost:        cost,
	}
}

func TestMonthly_BucketsAndSums(t *testing.T) {
	observations := []api.SalesObservation{
		obs("A", 2024, time.January, 5, 10, 10.0, 6.0),
		obs("A", 2024, time.January, 20, 20, 12.0, 6.0),
		obs("A", 2024, time.February, 3, 5, 10.0, 6.0),
	}

	series := Monthly(observations, "A")
	if len(series) != 2 {
		t.Fatalf("Expected 2 monthly buckets, got %d", len(series))
	}

	jan := series[0]
	if jan.MonthKey != "2024-01" {
		t.Errorf("Expected first bucket 2024-01, got %s", jan.MonthKey)
	}
	if jan.SoldQuantity != 30 {
		t.Errorf("Expected 30 sold in January, got %d", jan.SoldQuantity)
	}
	if jan.OrderedQuantity != 34 {
		t.Errorf("Expected 34 ordered in January, got %d", jan.OrderedQuantity)
	}

	// revenue = 10*10 + 20*12 = 340
	if math.Abs(jan.Revenue-340) > 1e-9 {
		t.Errorf("Expected January revenue 340, got %f", jan.Revenue)
	}

	// simple mean of unit prices, not quantity-weighted
	if math.Abs(jan.AveragePrice-11.0) > 1e-9 {
		t.Errorf("Expected average price 11.0, got %f", jan.AveragePrice)
	}

	// population stddev of {10, 12} is 1
	if math.Abs(jan.PriceStdDev-1.0) > 1e-9 {
		t.Errorf("Expected price stddev 1.0, got %f", jan.PriceStdDev)
	}

	// cost = 30*6 = 180, margin = (340-180)/340
	wantMargin := (340.0 - 180.0) / 340.0
	if math.Abs(jan.ProfitMargin-wantMargin) > 1e-9 {
		t.Errorf("Expected margin %f, got %f", wantMargin, jan.ProfitMargin)
	}

	feb := series[1]
	if feb.PriceStdDev != 0 {
		t.Errorf("Expected zero stddev for single-observation month, got %f", feb.PriceStdDev)
	}
}

func TestMonthly_OrderIndependent(t *testing.T) {
	forward := []api.SalesObservation{
		obs("A", 2024, time.January, 5, 10, 10.0, 6.0),
		obs("A", 2024, time.February, 3, 5, 11.0, 6.0),
		obs("A", 2024, time.March, 9, 7, 12.0, 6.0),
	}
	reversed := []api.SalesObservation{forward[2], forward[1], forward[0]}

	a := Monthly(forward, ScopeAll)
	b := Monthly(reversed, ScopeAll)

	if len(a) != len(b) {
		t.Fatalf("Expected same bucket count, got %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("Bucket %d differs by input order: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestMonthly_SKUScoping(t *testing.T) {
	observations := []api.SalesObservation{
		obs("A", 2024, time.January, 5, 10, 10.0, 6.0),
		obs("B", 2024, time.January, 5, 99, 20.0, 6.0),
	}

	scoped := Monthly(observations, "A")
	if len(scoped) != 1 || scoped[0].SoldQuantity != 10 {
		t.Errorf("Expected SKU A bucket with 10 sold, got %+v", scoped)
	}

	global := Monthly(observations, ScopeAll)
	if len(global) != 1 || global[0].SoldQuantity != 109 {
		t.Errorf("Expected global bucket with 109 sold, got %+v", global)
	}

	missing := Monthly(observations, "C")
	if len(missing) != 0 {
		t.Errorf("Expected empty series for unknown SKU, got %d buckets", len(missing))
	}
}

func TestSKUs_SortedDistinct(t *testing.T) {
	observations := []api.SalesObservation{
		obs("B", 2024, time.January, 1, 1, 1, 1),
		obs("A", 2024, time.January, 1, 1, 1, 1),
		obs("B", 2024, time.February, 1, 1, 1, 1),
	}

	skus := SKUs(observations)
	if len(skus) != 2 || skus[0] != "A" || skus[1] != "B" {
		t.Errorf("Expected [A B], got %v", skus)
	}
}

func TestMonthly_SeriesIsValid(t *testing.T) {
	observations := []api.SalesObservation{
		obs("A", 2024, time.March, 1, 1, 1, 1),
		obs("A", 2024, time.January, 1, 1, 1, 1),
		obs("A", 2024, time.December, 1, 1, 1, 1),
	}
	series := Monthly(observations, "A")
	if err := series.Validate(); err != nil {
		t.Errorf("Expected valid ascending series, got error: %v", err)
	}
}
