package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"pourprice/server/internal/benchmark"
	"pourprice/server/internal/costs"
	"pourprice/server/internal/models"
	"pourprice/server/internal/optimizer"
)

// ErrNoMarketEstimate is returned when the benchmark snapshot cannot produce
// any market price for the product, not even the global median.
var ErrNoMarketEstimate = errors.New("no market price estimate available")

// Config are the guardrails every recommendation passes through, whatever
// method produced the raw price.
type Config struct {
	GuardrailPct float64 // max relative move from the current price
	RoundingUnit float64 // recommended prices snap to multiples of this
	PriceFloor   float64 // absolute minimum recommended price
}

func DefaultConfig() Config {
	return Config{
		GuardrailPct: 0.15,
		RoundingUnit: 25,
		PriceFloor:   25,
	}
}

// Request asks for one price recommendation. A nil Context is filled from the
// wall clock.
type Request struct {
	Identity     models.ProductIdentity
	CurrentPrice float64
	Context      *models.DemandContext
}

// Engine produces price recommendations in three stages: a market benchmark
// baseline, a demand-model optimization pass that must beat the baseline to
// be adopted, and a fallback to the baseline when the optimizer fails.
type Engine struct {
	benchmarks *benchmark.Store
	optimizer  *optimizer.Optimizer // nil runs benchmark-only
	costModel  *costs.Model
	cfg        Config
	logger     *logrus.Logger
}

func New(benchmarks *benchmark.Store, opt *optimizer.Optimizer, costModel *costs.Model, cfg Config, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		benchmarks: benchmarks,
		optimizer:  opt,
		costModel:  costModel,
		cfg:        cfg,
		logger:     logger,
	}
}

// Recommend computes one recommendation. The benchmark baseline always
// exists; the demand optimizer may replace it, and any optimizer fault
// degrades to the baseline instead of failing the request.
func (e *Engine) Recommend(req Request) (*models.Recommendation, error) {
	if req.CurrentPrice <= 0 {
		return nil, fmt.Errorf("current price must be positive, got %.2f", req.CurrentPrice)
	}

	snapshot, err := e.benchmarks.Snapshot()
	if err != nil {
		return nil, err
	}

	market, ok := snapshot.EstimateMarketPrice(req.Identity.Product, req.Identity.Category)
	if !ok {
		return nil, fmt.Errorf("%w for %q", ErrNoMarketEstimate, req.Identity.Product)
	}
	vpi := snapshot.VenueIndex(req.Identity.Venue)

	minPrice := req.CurrentPrice * (1 - e.cfg.GuardrailPct)
	maxPrice := req.CurrentPrice * (1 + e.cfg.GuardrailPct)

	baseline := e.applyGuardrails(market*vpi, minPrice, maxPrice)

	rec := &models.Recommendation{
		Venue:               req.Identity.Venue,
		Product:             req.Identity.Product,
		Category:            req.Identity.Category,
		CurrentPrice:        req.CurrentPrice,
		RecommendedPrice:    baseline,
		MarketPriceEstimate: market,
		VenuePremiumIndex:   vpi,
		Method:              models.MethodMarketBenchmark,
		MinPrice:            minPrice,
		MaxPrice:            maxPrice,
	}
	if e.costModel != nil {
		c := e.costModel.Cost(req.Identity.Product, req.Identity.Category, req.CurrentPrice)
		margin := costs.MarginPct(rec.RecommendedPrice, c)
		rec.Cost = &c
		rec.ProfitMarginPct = &margin
	}

	var noProfitNote bool
	if e.optimizer != nil {
		result, optErr := e.runOptimizer(req, minPrice, maxPrice)
		switch {
		case optErr != nil:
			e.logger.WithFields(logrus.Fields{
				"venue":   req.Identity.Venue,
				"product": req.Identity.Product,
				"error":   optErr,
			}).Warn("Price optimization failed, falling back to market benchmark")
			rec.Method = models.MethodMarketBenchmarkFallback
		case result.NoProfitablePrice:
			noProfitNote = true
			e.attachDemandMetrics(rec, result, false)
		default:
			e.attachDemandMetrics(rec, result, true)
			if improvement(result) > 0 {
				rec.RecommendedPrice = e.applyGuardrails(result.OptimalPrice, minPrice, maxPrice)
				rec.Method = models.MethodDemandOptimization
			}
		}
	}

	rec.DeltaAbs = rec.RecommendedPrice - req.CurrentPrice
	rec.DeltaPct = rec.DeltaAbs / req.CurrentPrice * 100
	if e.costModel != nil && rec.Cost != nil {
		margin := costs.MarginPct(rec.RecommendedPrice, *rec.Cost)
		rec.ProfitMarginPct = &margin
	}
	rec.Reason = e.buildReason(rec, noProfitNote)

	return rec, nil
}

// BulkResult carries one outcome of a bulk run; exactly one of Recommendation
// and Err is set.
type BulkResult struct {
	Identity       models.ProductIdentity
	Recommendation *models.Recommendation
	Err            error
}

// RecommendBulk evaluates each request independently. A failure is recorded
// on its own result and never stops the remaining items.
func (e *Engine) RecommendBulk(reqs []Request) []BulkResult {
	results := make([]BulkResult, len(reqs))
	for i, req := range reqs {
		rec, err := e.Recommend(req)
		results[i] = BulkResult{Identity: req.Identity, Recommendation: rec, Err: err}
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"venue":   req.Identity.Venue,
				"product": req.Identity.Product,
				"error":   err,
			}).Warn("Skipping product in bulk recommendation")
		}
	}
	return results
}

func (e *Engine) runOptimizer(req Request, minPrice, maxPrice float64) (*models.OptimizationResult, error) {
	ctx := models.DefaultContext(time.Now())
	if req.Context != nil {
		ctx = *req.Context
	}
	return e.optimizer.Optimize(optimizer.Request{
		Identity:     req.Identity,
		CurrentPrice: req.CurrentPrice,
		MinPrice:     &minPrice,
		MaxPrice:     &maxPrice,
		Step:         e.cfg.RoundingUnit,
		Context:      ctx,
	})
}

func (e *Engine) attachDemandMetrics(rec *models.Recommendation, result *models.OptimizationResult, withOptimal bool) {
	rec.PredictedDemandCurrent = ptr(result.CurrentDemand)
	rec.PredictedRevenueCurrent = ptr(result.CurrentRevenue)
	if !withOptimal {
		return
	}
	rec.PredictedDemandOptimal = ptr(result.OptimalDemand)
	rec.PredictedRevenueOptimal = ptr(result.OptimalRevenue)
	rec.RevenueImprovement = ptr(result.RevenueImprovement)
	rec.RevenueImprovementPct = ptr(result.RevenueImprovementPct)
}

// improvement is the objective delta the optimizer must win by to override
// the benchmark baseline: profit when a cost is known, revenue otherwise.
func improvement(result *models.OptimizationResult) float64 {
	if result.Cost != nil {
		return result.ProfitImprovement
	}
	return result.RevenueImprovement
}

// applyGuardrails clamps the target into the window around the current price,
// rounds to the configured unit, and re-clamps. When rounding pushes the
// price outside the window, the nearest unit multiple inside the window wins;
// the raw window edge is used only when the window contains no multiple at
// all. The absolute price floor applies last.
func (e *Engine) applyGuardrails(target, minPrice, maxPrice float64) float64 {
	unit := e.cfg.RoundingUnit

	p := math.Min(math.Max(target, minPrice), maxPrice)
	if unit > 0 {
		p = math.Round(p/unit) * unit
		if p > maxPrice {
			if m := math.Floor(maxPrice/unit) * unit; m >= minPrice {
				p = m
			} else {
				p = maxPrice
			}
		} else if p < minPrice {
			if m := math.Ceil(minPrice/unit) * unit; m <= maxPrice {
				p = m
			} else {
				p = minPrice
			}
		}
	}
	if p < e.cfg.PriceFloor {
		p = e.cfg.PriceFloor
	}
	return p
}

func ptr(v float64) *float64 {
	return &v
}
