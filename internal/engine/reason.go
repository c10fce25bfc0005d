package engine

import (
	"fmt"
	"math"
	"strings"

	"pourprice/server/internal/models"
)

const (
	// A recommended move smaller than this is reported as well positioned.
	alignedThresholdPct = 1.0

	// Gap between the current price and the market estimate worth calling out.
	marketGapFactor = 0.10

	premiumIndexHigh = 1.1
	premiumIndexLow  = 0.9
)

func (e *Engine) buildReason(rec *models.Recommendation, noProfitablePrice bool) string {
	var parts []string

	switch rec.Method {
	case models.MethodDemandOptimization:
		if rec.RevenueImprovementPct != nil && *rec.RevenueImprovementPct > 0 {
			parts = append(parts, fmt.Sprintf("Demand model projects a %.1f%% revenue improvement at this price.", *rec.RevenueImprovementPct))
		} else {
			parts = append(parts, "Demand model identified a more profitable price in the allowed range.")
		}
	case models.MethodMarketBenchmarkFallback:
		parts = append(parts, "Demand model unavailable, using the market benchmark.")
	default:
		if math.Abs(rec.DeltaPct) < alignedThresholdPct {
			parts = append(parts, "Current price is well positioned against the market.")
		} else if rec.DeltaAbs > 0 {
			parts = append(parts, fmt.Sprintf("Market benchmark supports a %.1f%% increase.", rec.DeltaPct))
		} else {
			parts = append(parts, fmt.Sprintf("Market benchmark suggests a %.1f%% reduction.", -rec.DeltaPct))
		}
	}

	if rec.CurrentPrice > rec.MarketPriceEstimate*(1+marketGapFactor) {
		parts = append(parts, "Current price sits more than 10% above the estimated market price.")
	} else if rec.CurrentPrice < rec.MarketPriceEstimate*(1-marketGapFactor) {
		parts = append(parts, "Current price sits more than 10% below the estimated market price.")
	}

	if rec.VenuePremiumIndex > premiumIndexHigh {
		parts = append(parts, "Venue typically commands a premium over the market.")
	} else if rec.VenuePremiumIndex < premiumIndexLow {
		parts = append(parts, "Venue typically prices below the market.")
	}

	if noProfitablePrice {
		parts = append(parts, "No price in the allowed range meets the minimum margin, keeping the market-based recommendation.")
	}

	return strings.Join(parts, " ")
}
