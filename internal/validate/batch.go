package validate

import (
	"context"
	"sync"

	"github.com/skuforge/demandcast/internal/aggregate"
	"github.com/skuforge/demandcast/internal/api"
)

// EvaluateAccuracyBatch runs the accuracy back-test for every distinct SKU
// in the observation set, fanning out across the engine's worker pool.
// SKUs with too little history contribute a zero-metric Poor report; no
// single SKU can abort the batch. The overall mean MAPE is the unweighted
// mean over SKUs that produced a real back-test.
func (e *Engine) EvaluateAccuracyBatch(ctx context.Context, observations []api.SalesObservation) *api.BatchAccuracyReport {
	skus := aggregate.SKUs(observations)

	report := &api.BatchAccuracyReport{
		PerSKU: make(map[string]*api.AccuracyReport, len(skus)),
		CategoryHistogram: map[string]int{
			api.CategoryGood:   0,
			api.CategoryMedium: 0,
			api.CategoryPoor:   0,
		},
		TotalSKUs: len(skus),
	}
	if len(skus) == 0 {
		return report
	}

	jobs := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sku := range jobs {
				series := aggregate.Monthly(observations, sku)
				skuReport := e.EvaluateAccuracy(series)

				mu.Lock()
				report.PerSKU[sku] = skuReport
				report.CategoryHistogram[skuReport.Category]++
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, sku := range skus {
		select {
		case jobs <- sku:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	mapeSum, mapeCount := 0.0, 0
	for _, skuReport := range report.PerSKU {
		if skuReport.InsufficientData {
			continue
		}
		mapeSum += skuReport.MAPE
		mapeCount++
	}
	if mapeCount > 0 {
		report.OverallMeanMAPE = mapeSum / float64(mapeCount)
	}

	total := float64(len(report.PerSKU))
	if total > 0 {
		report.GoodPercentage = float64(report.CategoryHistogram[api.CategoryGood]) / total * 100
		report.MediumPercentage = float64(report.CategoryHistogram[api.CategoryMedium]) / total * 100
		report.PoorPercentage = float64(report.CategoryHistogram[api.CategoryPoor]) / total * 100
	}
	return report
}
