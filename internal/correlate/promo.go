package correlate

import (
	"fmt"

	"github.com/skuforge/demandcast/internal/api"
)

// promoDispersionRatio flags a month as promotional when its intra-month
// price dispersion exceeds this fraction of the month's mean price.
const promoDispersionRatio = 0.10

// PromotionalImpact compares demand between promotional and regular months.
// A month counts as promotional when its unit prices were dispersed enough
// to suggest in-month discounting. At least one month of each kind is
// required; otherwise the result explains why no comparison was possible.
func PromotionalImpact(series api.TimeSeries) *api.PromoImpactResult {
	var promoSum, regularSum float64
	var promoCount, regularCount int

	for _, bucket := range series {
		if bucket.AveragePrice > 0 && bucket.PriceStdDev > promoDispersionRatio*bucket.AveragePrice {
			promoSum += float64(bucket.SoldQuantity)
			promoCount++
		} else {
			regularSum += float64(bucket.SoldQuantity)
			regularCount++
		}
	}

	if promoCount == 0 || regularCount == 0 {
		return &api.PromoImpactResult{
			PromoMonths:      promoCount,
			RegularMonths:    regularCount,
			Recommendation:   "no promotional price pattern detected: every month shows uniform pricing, so promotional impact cannot be measured",
			InsufficientData: true,
		}
	}

	promoMean := promoSum / float64(promoCount)
	regularMean := regularSum / float64(regularCount)

	ratio := 0.0
	if regularMean > 0 {
		ratio = promoMean / regularMean
	}

	return &api.PromoImpactResult{
		PromoMonths:    promoCount,
		RegularMonths:  regularCount,
		PromoMeanQty:   promoMean,
		RegularMeanQty: regularMean,
		ImpactRatio:    ratio,
		Recommendation: promoRecommendation(ratio),
	}
}

func promoRecommendation(ratio float64) string {
	switch {
	case ratio >= 1.2:
		return fmt.Sprintf("promotional months sell %.0f%% more units than regular months; promotions are effective for this scope", (ratio-1)*100)
	case ratio >= 0.95:
		return "promotional months sell about the same as regular months; promotions mostly shift margin, not volume"
	default:
		return fmt.Sprintf("promotional months sell %.0f%% fewer units than regular months; review promotion timing", (1-ratio)*100)
	}
}
