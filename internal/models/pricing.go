package models

import "time"

// Recommendation methods. The method tag records which terminal state of the
// hybrid engine produced the recommendation.
const (
	MethodMarketBenchmark         = "market_benchmark"
	MethodDemandOptimization      = "demand_optimization"
	MethodMarketBenchmarkFallback = "market_benchmark_fallback"
)

// ProductIdentity names one product at one venue.
type ProductIdentity struct {
	Venue    string `json:"venue"`
	Product  string `json:"product"`
	Category string `json:"category"`
}

// Key returns the normalized cross-venue product key.
func (p ProductIdentity) Key() string {
	return NormalizeProductKey(p.Product)
}

// DemandContext carries the time/event/inventory features a demand prediction
// is conditioned on. It is passed verbatim to both prediction and
// optimization.
type DemandContext struct {
	DayOfWeek      int     `json:"day_of_week"`     // 0=Monday .. 6=Sunday
	Hour           int     `json:"hour"`            // 0..23
	IsWeekend      bool    `json:"is_weekend"`      // Friday through Sunday
	IsHoliday      bool    `json:"is_holiday"`
	EventType      string  `json:"event_type"`      // regular, DJ, holiday, concert, private_event
	InventoryLevel float64 `json:"inventory_level"` // 0..1, fraction of stock remaining
	Month          int     `json:"month"`           // 1..12
}

// DefaultContext fills a demand context from the wall clock, matching how
// requests without explicit signals are evaluated.
func DefaultContext(now time.Time) DemandContext {
	dow := (int(now.Weekday()) + 6) % 7 // time.Weekday is Sunday-based
	return DemandContext{
		DayOfWeek:      dow,
		Hour:           now.Hour(),
		IsWeekend:      dow >= 4,
		IsHoliday:      false,
		EventType:      "regular",
		InventoryLevel: 1.0,
		Month:          int(now.Month()),
	}
}

// Benchmarks is an immutable market statistics snapshot. Once computed it is
// shared read-only between recommendation requests; a recompute builds a fresh
// snapshot and swaps it in.
type Benchmarks struct {
	GlobalMedian      float64            `json:"global_median"`
	BrandMedians      map[string]float64 `json:"brand_medians"` // normalized product key -> median
	TypeMedians       map[string]float64 `json:"type_medians"`  // category -> median
	BrandPremiumScore map[string]float64 `json:"brand_premium_score"`
	VenuePremiumIndex map[string]float64 `json:"venue_premium_index"`
	RecordCount       int                `json:"record_count"`
	ComputedAt        time.Time          `json:"computed_at"`
}

// EstimateMarketPrice estimates the market price for a product: the
// cross-venue brand median when the product is known, else the category
// median, else the global median. The second return is false only when no
// estimate at all can be derived.
func (b *Benchmarks) EstimateMarketPrice(product, category string) (float64, bool) {
	if m, ok := b.BrandMedians[NormalizeProductKey(product)]; ok {
		return m, true
	}
	if m, ok := b.TypeMedians[category]; ok {
		return m, true
	}
	if b.GlobalMedian > 0 {
		return b.GlobalMedian, true
	}
	return 0, false
}

// VenueIndex returns the venue premium index, defaulting to 1.0 for venues
// the snapshot has never seen.
func (b *Benchmarks) VenueIndex(venue string) float64 {
	if v, ok := b.VenuePremiumIndex[venue]; ok {
		return v
	}
	return 1.0
}

// CandidateEvaluation is one grid point evaluated by the price optimizer.
type CandidateEvaluation struct {
	Price           float64  `json:"price"`
	PredictedDemand float64  `json:"predicted_demand"`
	Revenue         float64  `json:"revenue"`
	Profit          *float64 `json:"profit,omitempty"`
	ProfitMarginPct *float64 `json:"profit_margin_pct,omitempty"`
}

// OptimizationResult is the full outcome of one bounded grid search.
// NoProfitablePrice marks the normal, non-error outcome where no candidate
// met the margin floor; Cost and MinProfitPrice are still populated then.
type OptimizationResult struct {
	OptimalPrice     float64 `json:"optimal_price"`
	OptimalDemand    float64 `json:"optimal_demand"`
	OptimalRevenue   float64 `json:"optimal_revenue"`
	OptimalProfit    float64 `json:"optimal_profit"`
	OptimalMarginPct float64 `json:"optimal_profit_margin_pct"`

	CurrentPrice     float64 `json:"current_price"`
	CurrentDemand    float64 `json:"current_demand"`
	CurrentRevenue   float64 `json:"current_revenue"`
	CurrentProfit    float64 `json:"current_profit"`
	CurrentMarginPct float64 `json:"current_profit_margin_pct"`

	RevenueImprovement    float64 `json:"revenue_improvement"`
	RevenueImprovementPct float64 `json:"revenue_improvement_pct"`
	ProfitImprovement     float64 `json:"profit_improvement"`
	ProfitImprovementPct  float64 `json:"profit_improvement_pct"`
	PriceChange           float64 `json:"price_change"`
	PriceChangePct        float64 `json:"price_change_pct"`

	OptimizeFor       string                `json:"optimize_for"` // "revenue" or "profit"
	Cost              *float64              `json:"cost,omitempty"`
	MinProfitPrice    float64               `json:"min_profit_price,omitempty"`
	NoProfitablePrice bool                  `json:"no_profitable_price"`
	Candidates        []CandidateEvaluation `json:"price_range,omitempty"`
}

// Recommendation is the per-request output of the engine. It is complete and
// immutable once returned.
type Recommendation struct {
	Venue    string `json:"venue"`
	Product  string `json:"product"`
	Category string `json:"category"`

	CurrentPrice     float64 `json:"current_price"`
	RecommendedPrice float64 `json:"recommended_price"`
	DeltaPct         float64 `json:"delta_pct"`
	DeltaAbs         float64 `json:"delta_abs"`

	MarketPriceEstimate float64 `json:"market_price_estimate"`
	VenuePremiumIndex   float64 `json:"vpi"`

	Cost            *float64 `json:"cost,omitempty"`
	ProfitMarginPct *float64 `json:"profit_margin_pct,omitempty"`

	PredictedDemandCurrent  *float64 `json:"predicted_demand_current,omitempty"`
	PredictedDemandOptimal  *float64 `json:"predicted_demand_optimal,omitempty"`
	PredictedRevenueCurrent *float64 `json:"predicted_revenue_current,omitempty"`
	PredictedRevenueOptimal *float64 `json:"predicted_revenue_optimal,omitempty"`
	RevenueImprovement      *float64 `json:"revenue_improvement,omitempty"`
	RevenueImprovementPct   *float64 `json:"revenue_improvement_pct,omitempty"`

	Method   string  `json:"method"`
	Reason   string  `json:"reason"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
}
