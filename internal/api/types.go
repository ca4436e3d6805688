package api

import (
	"fmt"
	"time"
)

// SalesObservation is a single validated sales record for one SKU on one date.
// Records are immutable once ingested; validation (non-zero date, non-negative
// quantities and prices) is the ingestion layer's job.
type SalesObservation struct {
	Date            time.Time `json:"date"`
	SKU             string    `json:"sku"`
	SoldQuantity    int       `json:"soldQuantity"`
	OrderedQuantity int       `json:"orderedQuantity"`
	UnitPrice       float64   `json:"unitPrice"`
	UnitCost        float64   `json:"unitCost"`
}

// Revenue is soldQuantity x unitPrice.
func (o SalesObservation) Revenue() float64 {
	return float64(o.SoldQuantity) * o.UnitPrice
}

// FillRate is soldQuantity / orderedQuantity, or 0 when nothing was ordered.
func (o SalesObservation) FillRate() float64 {
	if o.OrderedQuantity == 0 {
		return 0
	}
	return float64(o.SoldQuantity) / float64(o.OrderedQuantity)
}

// MonthlyBucket is one calendar month of aggregated sales for a scope.
type MonthlyBucket struct {
	MonthKey        string  `json:"monthKey"` // "2006-01"
	SoldQuantity    int     `json:"soldQuantity"`
	OrderedQuantity int     `json:"orderedQuantity"`
	Revenue         float64 `json:"revenue"`
	AveragePrice    float64 `json:"averagePrice"` // simple mean of contributing unit prices
	PriceStdDev     float64 `json:"priceStdDev"`  // intra-month unit price dispersion
	ProfitMargin    float64 `json:"profitMargin"` // (revenue - cost) / revenue
}

// Month returns the calendar month of the bucket key.
func (b MonthlyBucket) Month() time.Month {
	t, err := ParseMonthKey(b.MonthKey)
	if err != nil {
		return time.January
	}
	return t.Month()
}

// TimeSeries is a sequence of monthly buckets, strictly ascending by MonthKey.
// Gaps are tolerated, never interpolated.
type TimeSeries []MonthlyBucket

// Quantities returns the sold quantities as floats, in series order.
func (ts TimeSeries) Quantities() []float64 {
	q := make([]float64, len(ts))
	for i, b := range ts {
		q[i] = float64(b.SoldQuantity)
	}
	return q
}

// Months returns the calendar month of each bucket, in series order.
func (ts TimeSeries) Months() []time.Month {
	m := make([]time.Month, len(ts))
	for i, b := range ts {
		m[i] = b.Month()
	}
	return m
}

// Validate checks the ascending unique-key invariant.
func (ts TimeSeries) Validate() error {
	for i := 1; i < len(ts); i++ {
		if ts[i].MonthKey <= ts[i-1].MonthKey {
			return fmt.Errorf("time series not strictly ascending at %q", ts[i].MonthKey)
		}
	}
	return nil
}

// ForecastPoint is one future period of the ensemble forecast.
// Quantity is a non-negative integer; bounds span the 95% interval.
type ForecastPoint struct {
	MonthKey   string  `json:"monthKey"`
	Quantity   int     `json:"quantity"`
	Revenue    float64 `json:"revenue"`
	LowerBound float64 `json:"lowerBound"`
	UpperBound float64 `json:"upperBound"`
}

// Accuracy categories derived from back-test MAPE.
const (
	CategoryGood   = "Good"   // MAPE <= 10
	CategoryMedium = "Medium" // MAPE <= 25
	CategoryPoor   = "Poor"   // otherwise
)

// ComparisonPoint pairs a held-out actual with its back-test forecast.
type ComparisonPoint struct {
	MonthKey string  `json:"monthKey"`
	Actual   float64 `json:"actual"`
	Forecast float64 `json:"forecast"`
}

// AccuracyReport is the outcome of a train/validation back-test.
// InsufficientData reports carry zero metrics and an explanatory
// recommendation instead of aborting the caller.
type AccuracyReport struct {
	MAE              float64           `json:"mae"`
	MAPE             float64           `json:"mape"` // percent
	RMSE             float64           `json:"rmse"`
	Category         string            `json:"category"`
	Confidence       float64           `json:"confidence"` // [0, 1]
	Recommendation   string            `json:"recommendation"`
	TrainingMonths   int               `json:"trainingMonths"`
	ValidationMonths int               `json:"validationMonths"`
	DataPoints       int               `json:"dataPoints"`
	Comparison       []ComparisonPoint `json:"comparison,omitempty"`
	InsufficientData bool              `json:"insufficientData,omitempty"`
}

// BatchAccuracyReport collects per-SKU back-tests across an observation set.
type BatchAccuracyReport struct {
	PerSKU            map[string]*AccuracyReport `json:"perSku"`
	CategoryHistogram map[string]int             `json:"categoryHistogram"`
	OverallMeanMAPE   float64                    `json:"overallMeanMape"`
	GoodPercentage    float64                    `json:"goodPercentage"`
	MediumPercentage  float64                    `json:"mediumPercentage"`
	PoorPercentage    float64                    `json:"poorPercentage"`
	TotalSKUs         int                        `json:"totalSkus"`
}

// DeltaPoint is one month-over-month price/quantity change pair.
type DeltaPoint struct {
	MonthKey    string  `json:"monthKey"`
	PriceChange float64 `json:"priceChange"` // fractional
	SalesChange float64 `json:"salesChange"` // fractional
}

// CorrelationResult quantifies the price/sales relationship for a series.
type CorrelationResult struct {
	Coefficient      float64      `json:"coefficient"` // Pearson r in [-1, 1]
	Confidence       float64      `json:"confidence"`  // [0, 1]
	PriceElasticity  float64      `json:"priceElasticity"`
	Deltas           []DeltaPoint `json:"deltas,omitempty"`
	Narrative        string       `json:"narrative"`
	InsufficientData bool         `json:"insufficientData,omitempty"`
}

// PromoImpactResult compares demand between promotional and regular months.
// A month counts as promotional when its intra-month price dispersion exceeds
// 10% of its mean price.
type PromoImpactResult struct {
	PromoMonths      int     `json:"promoMonths"`
	RegularMonths    int     `json:"regularMonths"`
	PromoMeanQty     float64 `json:"promoMeanQuantity"`
	RegularMeanQty   float64 `json:"regularMeanQuantity"`
	ImpactRatio      float64 `json:"impactRatio"` // promo mean / regular mean
	Recommendation   string  `json:"recommendation"`
	InsufficientData bool    `json:"insufficientData,omitempty"`
}

const monthKeyLayout = "2006-01"

// MonthKey formats a date as its calendar-month bucket key.
func MonthKey(t time.Time) string {
	return t.Format(monthKeyLayout)
}

// ParseMonthKey parses a "2006-01" bucket key.
func ParseMonthKey(key string) (time.Time, error) {
	return time.Parse(monthKeyLayout, key)
}

// AddMonths shifts a bucket key forward by n calendar months.
func AddMonths(key string, n int) string {
	t, err := ParseMonthKey(key)
	if err != nil {
		return key
	}
	return MonthKey(t.AddDate(0, n, 0))
}
