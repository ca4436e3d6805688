package api

// ForecastParams contains the fixed model constants, diagnostic thresholds,
// and stage minimums used across the forecasting pipeline.
type ForecastParams struct {
	// Exponential smoothing constants (Holt-Winters style).
	Alpha float64 `json:"alpha"` // level
	Beta  float64 `json:"beta"`  // trend
	Gamma float64 `json:"gamma"` // season

	SeasonLength int `json:"season_length"` // seasonal slots (calendar months)
	WindowMax    int `json:"window_max"`    // moving-average window cap

	// Diagnostic thresholds for ensemble weight selection, checked in order.
	VolatilityThreshold  float64 `json:"volatility_threshold"`
	TrendThreshold       float64 `json:"trend_threshold"`
	SeasonalityThreshold float64 `json:"seasonality_threshold"`

	// Validation split and stage minimums.
	TrainRatio     float64 `json:"train_ratio"`
	MinSeries      int     `json:"min_series"`       // months for a full accuracy pipeline
	MinTraining    int     `json:"min_training"`     // training buckets for a split
	MinValidation  int     `json:"min_validation"`   // validation buckets for a split
	MinModelPoints int     `json:"min_model_points"` // points for a single model

	DefaultHorizon int `json:"default_horizon"`
}

// DefaultForecastParams returns the canonical parameters.
func DefaultForecastParams() ForecastParams {
	return ForecastParams{
		Alpha:                0.3,
		Beta:                 0.1,
		Gamma:                0.1,
		SeasonLength:         12,
		WindowMax:            6,
		VolatilityThreshold:  0.5,
		TrendThreshold:       0.3,
		SeasonalityThreshold: 0.4,
		TrainRatio:           0.7,
		MinSeries:            8,
		MinTraining:          4,
		MinValidation:        2,
		MinModelPoints:       3,
		DefaultHorizon:       12,
	}
}
