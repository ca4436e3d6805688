package api

import (
	"testing"
	"time"
)

func TestMonthKey_RoundTrip(t *testing.T) {
	d := time.Date(2024, time.March, 17, 14, 30, 0, 0, time.UTC)
	key := MonthKey(d)
	if key != "2024-03" {
		t.Errorf("Expected key 2024-03, got %s", key)
	}

	parsed, err := ParseMonthKey(key)
	if err != nil {
		t.Fatalf("ParseMonthKey failed: %v", err)
	}
	if parsed.Year() != 2024 || parsed.Month() != time.March {
		t.Errorf("Expected 2024-03, got %v", parsed)
	}
}

func TestAddMonths_YearBoundary(t *testing.T) {
	if got := AddMonths("2024-11", 3); got != "2025-02" {
		t.Errorf("Expected 2025-02, got %s", got)
	}
	if got := AddMonths("2024-01", 12); got != "2025-01" {
		t.Errorf("Expected 2025-01, got %s", got)
	}
}

func TestAddMonths_InvalidKeyPassthrough(t *testing.T) {
	if got := AddMonths("garbage", 1); got != "garbage" {
		t.Errorf("Expected passthrough for invalid key, got %s", got)
	}
}

func TestSalesObservation_Revenue(t *testing.T) {
	obs := SalesObservation{SoldQuantity: 5, UnitPrice: 12.5}
	if got := obs.Revenue(); got != 62.5 {
		t.Errorf("Expected revenue 62.5, got %f", got)
	}
}

func TestSalesObservation_FillRate(t *testing.T) {
	obs := SalesObservation{SoldQuantity: 8, OrderedQuantity: 10}
	if got := obs.FillRate(); got != 0.8 {
		t.Errorf("Expected fill rate 0.8, got %f", got)
	}

	zero := SalesObservation{SoldQuantity: 8, OrderedQuantity: 0}
	if got := zero.FillRate(); got != 0 {
		t.Errorf("Expected fill rate 0 when nothing ordered, got %f", got)
	}
}

func TestTimeSeries_Validate(t *testing.T) {
	good := TimeSeries{
		{MonthKey: "2024-01"},
		{MonthKey: "2024-02"},
		{MonthKey: "2024-05"},
	}
	if err := good.Validate(); err != nil {
		t.Errorf("Expected valid series with gaps, got error: %v", err)
	}

	duplicate := TimeSeries{
		{MonthKey: "2024-01"},
		{MonthKey: "2024-01"},
	}
	if err := duplicate.Validate(); err == nil {
		t.Error("Expected error for duplicate month keys")
	}

	descending := TimeSeries{
		{MonthKey: "2024-03"},
		{MonthKey: "2024-01"},
	}
	if err := descending.Validate(); err == nil {
		t.Error("Expected error for descending month keys")
	}
}

func TestMonthlyBucket_Month(t *testing.T) {
	b := MonthlyBucket{MonthKey: "2024-07"}
	if b.Month() != time.July {
		t.Errorf("Expected July, got %v", b.Month())
	}
}
