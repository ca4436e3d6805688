package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skuforge/demandcast/internal/aggregate"
	"github.com/skuforge/demandcast/internal/api"
	"github.com/skuforge/demandcast/internal/correlate"
	"github.com/skuforge/demandcast/internal/ensemble"
	"github.com/skuforge/demandcast/internal/validate"
)

var (
	// Global flags
	inputFile  string
	sku        string
	jsonOutput bool

	// Forecast flags
	periods int

	// Batch flags
	workers int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "demandctl",
		Short: "Offline demand forecasting over a sales observation file",
		Long: `Runs the forecasting pipeline against a JSON file of sales observations
without a running server: ensemble forecasts, accuracy back-tests, and
price/sales correlation analysis.`,
	}

	rootCmd.PersistentFlags().StringVarP(&inputFile, "input", "i", "", "Sales observations file (JSON array)")
	rootCmd.PersistentFlags().StringVarP(&sku, "sku", "s", "", "Restrict analysis to one SKU (default: all observations)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit raw JSON instead of tables")
	rootCmd.MarkPersistentFlagRequired("input")

	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(accuracyCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(correlateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Produce an ensemble demand forecast",
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := loadSeries()
			if err != nil {
				return err
			}

			engine := ensemble.NewEngine(api.DefaultForecastParams())
			fit, err := engine.Fit(series)
			if err != nil {
				return fmt.Errorf("failed to fit forecast models: %w", err)
			}
			points := fit.Forecast(periods)

			if jsonOutput {
				return emitJSON(map[string]interface{}{
					"diagnostics": fit.Diag,
					"weights":     fit.Weights,
					"forecast":    points,
				})
			}

			fmt.Printf("Weight rule: %s (trend=%.2f movingAverage=%.2f smoothing=%.2f)\n",
				fit.Weights.Rule, fit.Weights.Trend, fit.Weights.MovingAverage, fit.Weights.Smoothing)
			fmt.Printf("Diagnostics: volatility=%.3f trendStrength=%.3f seasonalityStrength=%.3f\n\n",
				fit.Diag.Volatility, fit.Diag.TrendStrength, fit.Diag.SeasonalityStrength)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MONTH\tQUANTITY\tREVENUE\tLOWER\tUPPER")
			for _, p := range points {
				fmt.Fprintf(w, "%s\t%d\t%.2f\t%.1f\t%.1f\n",
					p.MonthKey, p.Quantity, p.Revenue, p.LowerBound, p.UpperBound)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&periods, "periods", "p", 12, "Forecast horizon in months")
	return cmd
}

func accuracyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accuracy",
		Short: "Back-test forecast accuracy on a 70/30 chronological split",
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := loadSeries()
			if err != nil {
				return err
			}

			params := api.DefaultForecastParams()
			validator := validate.NewEngine(params, ensemble.NewEngine(params), 1)
			report := validator.EvaluateAccuracy(series)

			if jsonOutput {
				return emitJSON(report)
			}

			if report.InsufficientData {
				fmt.Println(report.Recommendation)
				return nil
			}

			fmt.Printf("Category:    %s\n", report.Category)
			fmt.Printf("MAE:         %.2f\n", report.MAE)
			fmt.Printf("MAPE:        %.2f%%\n", report.MAPE)
			fmt.Printf("RMSE:        %.2f\n", report.RMSE)
			fmt.Printf("Confidence:  %.2f\n", report.Confidence)
			fmt.Printf("Split:       %d training / %d validation months\n", report.TrainingMonths, report.ValidationMonths)
			fmt.Printf("\n%s\n\n", report.Recommendation)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MONTH\tACTUAL\tFORECAST")
			for _, c := range report.Comparison {
				fmt.Fprintf(w, "%s\t%.0f\t%.0f\n", c.MonthKey, c.Actual, c.Forecast)
			}
			return w.Flush()
		},
	}
}

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Back-test every SKU in the input file",
		RunE: func(cmd *cobra.Command, args []string) error {
			observations, err := loadObservations()
			if err != nil {
				return err
			}

			params := api.DefaultForecastParams()
			validator := validate.NewEngine(params, ensemble.NewEngine(params), workers)
			report := validator.EvaluateAccuracyBatch(context.Background(), observations)

			if jsonOutput {
				return emitJSON(report)
			}

			fmt.Printf("SKUs evaluated: %d\n", report.TotalSKUs)
			fmt.Printf("Overall mean MAPE: %.2f%%\n", report.OverallMeanMAPE)
			fmt.Printf("Good: %.1f%%  Medium: %.1f%%  Poor: %.1f%%\n\n",
				report.GoodPercentage, report.MediumPercentage, report.PoorPercentage)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SKU\tCATEGORY\tMAPE\tCONFIDENCE")
			for skuID, r := range report.PerSKU {
				if r.InsufficientData {
					fmt.Fprintf(w, "%s\t%s\tn/a\tn/a\n", skuID, r.Category)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%.2f%%\t%.2f\n", skuID, r.Category, r.MAPE, r.Confidence)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Parallel SKU evaluations")
	return cmd
}

func correlateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "correlate",
		Short: "Analyze price/sales correlation and promotional impact",
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := loadSeries()
			if err != nil {
				return err
			}

			result := correlate.PriceSales(series)
			promo := correlate.PromotionalImpact(series)

			if jsonOutput {
				return emitJSON(map[string]interface{}{
					"correlation": result,
					"promoImpact": promo,
				})
			}

			if result.InsufficientData {
				fmt.Printf("Correlation: %s\n", result.Narrative)
			} else {
				fmt.Printf("Correlation:      %.3f\n", result.Coefficient)
				fmt.Printf("Price elasticity: %.3f\n", result.PriceElasticity)
				fmt.Printf("Confidence:       %.2f\n", result.Confidence)
				fmt.Printf("%s\n", result.Narrative)
			}

			fmt.Println()
			if promo.InsufficientData {
				fmt.Printf("Promotional impact: %s\n", promo.Recommendation)
				return nil
			}
			fmt.Printf("Promo months:   %d (avg %.1f sold)\n", promo.PromoMonths, promo.PromoMeanQty)
			fmt.Printf("Regular months: %d (avg %.1f sold)\n", promo.RegularMonths, promo.RegularMeanQty)
			fmt.Printf("Impact ratio:   %.2f\n", promo.ImpactRatio)
			fmt.Printf("%s\n", promo.Recommendation)
			return nil
		},
	}
}

func loadObservations() ([]api.SalesObservation, error) {
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	var observations []api.SalesObservation
	if err := json.Unmarshal(data, &observations); err != nil {
		return nil, fmt.Errorf("invalid observations file: %w", err)
	}
	if len(observations) == 0 {
		return nil, fmt.Errorf("no observations in %s", inputFile)
	}
	return observations, nil
}

func loadSeries() (api.TimeSeries, error) {
	observations, err := loadObservations()
	if err != nil {
		return nil, err
	}
	series := aggregate.Monthly(observations, sku)
	if len(series) == 0 {
		return nil, fmt.Errorf("no observations match SKU %q", sku)
	}
	return series, nil
}

func emitJSON(payload interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
