package optimizer

import (
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"pourprice/server/internal/costs"
	"pourprice/server/internal/demand"
	"pourprice/server/internal/models"
)

const (
	// Default search window around the current price when no bounds are given.
	defaultLowerFactor = 0.7
	defaultUpperFactor = 1.5

	// DefaultStep is the grid spacing for standalone optimization runs; the
	// recommendation engine overrides it with the rounding unit.
	DefaultStep = 5.0

	gridEpsilon = 1e-9

	// marginEpsilon keeps the exact margin-floor price (cost/(1-m)) from
	// being filtered out by floating point rounding.
	marginEpsilon = 1e-9
)

// Request describes one bounded price search.
type Request struct {
	Identity     models.ProductIdentity
	CurrentPrice float64
	MinPrice     *float64 // nil means defaultLowerFactor x current
	MaxPrice     *float64 // nil means defaultUpperFactor x current
	Step         float64
	Context      models.DemandContext
}

// Optimizer finds the price that maximizes predicted profit (when a cost
// model is attached) or revenue, over a fixed grid of candidate prices.
type Optimizer struct {
	predictor demand.Predictor
	costModel *costs.Model // nil disables the profitability filter
	logger    *logrus.Logger
	workers   int
}

func New(predictor demand.Predictor, costModel *costs.Model, workers int, logger *logrus.Logger) *Optimizer {
	if logger == nil {
		logger = logrus.New()
	}
	if workers < 1 {
		workers = 1
	}
	return &Optimizer{
		predictor: predictor,
		costModel: costModel,
		logger:    logger,
		workers:   workers,
	}
}

// Optimize runs the grid search. Candidates are evaluated independently (in
// parallel), then reduced in one pass after all evaluations complete so that
// the smallest price always wins a tie on the objective. Any predictor fault
// aborts the whole search with an error; a grid with no candidate meeting the
// margin floor is not an error but a NoProfitablePrice result.
func (o *Optimizer) Optimize(req Request) (*models.OptimizationResult, error) {
	if req.CurrentPrice <= 0 {
		return nil, fmt.Errorf("current price must be positive, got %.2f", req.CurrentPrice)
	}
	step := req.Step
	if step <= 0 {
		step = DefaultStep
	}

	lower := req.CurrentPrice * defaultLowerFactor
	if req.MinPrice != nil {
		lower = *req.MinPrice
	}
	upper := req.CurrentPrice * defaultUpperFactor
	if req.MaxPrice != nil {
		upper = *req.MaxPrice
	}

	var cost *float64
	minProfitPrice := 0.0
	if o.costModel != nil {
		c := o.costModel.Cost(req.Identity.Product, req.Identity.Category, req.CurrentPrice)
		cost = &c

		mp, err := o.costModel.MinimumPrice(c)
		if err != nil {
			return nil, fmt.Errorf("invalid cost configuration: %w", err)
		}
		minProfitPrice = mp
		// Never search below the margin floor.
		lower = math.Max(lower, mp)
	}

	grid := priceGrid(lower, upper, step)
	if len(grid) == 0 {
		return o.noProfitableResult(req, cost, minProfitPrice), nil
	}

	evaluations, err := o.evaluateAll(req, grid, cost)
	if err != nil {
		return nil, err
	}

	// Baseline metrics at the current price, for improvement reporting.
	currentDemand, err := o.predictor.Predict(req.CurrentPrice, req.Identity, req.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to predict demand at current price: %w", err)
	}
	currentRevenue := req.CurrentPrice * currentDemand

	// Profitability filter: when a cost is known, candidates below the
	// margin floor are discarded before the argmax.
	candidates := evaluations
	if cost != nil {
		candidates = make([]models.CandidateEvaluation, 0, len(evaluations))
		for _, e := range evaluations {
			if *e.ProfitMarginPct >= o.costModel.MinMargin()*100-marginEpsilon {
				candidates = append(candidates, e)
			}
		}
	}
	if len(candidates) == 0 {
		res := o.noProfitableResult(req, cost, minProfitPrice)
		res.CurrentDemand = currentDemand
		res.CurrentRevenue = currentRevenue
		if cost != nil {
			res.CurrentProfit = (req.CurrentPrice - *cost) * currentDemand
			res.CurrentMarginPct = costs.MarginPct(req.CurrentPrice, *cost)
		}
		return res, nil
	}

	objective := func(e models.CandidateEvaluation) float64 {
		if cost != nil {
			return *e.Profit
		}
		return e.Revenue
	}

	// All candidates are collected before reducing; a strict > comparison on
	// the ascending grid makes the smallest maximizing price the winner.
	best := candidates[0]
	for _, e := range candidates[1:] {
		if objective(e) > objective(best) {
			best = e
		}
	}

	result := &models.OptimizationResult{
		OptimalPrice:   best.Price,
		OptimalDemand:  best.PredictedDemand,
		OptimalRevenue: best.Revenue,
		CurrentPrice:   req.CurrentPrice,
		CurrentDemand:  currentDemand,
		CurrentRevenue: currentRevenue,
		PriceChange:    best.Price - req.CurrentPrice,
		PriceChangePct: pctOf(best.Price-req.CurrentPrice, req.CurrentPrice),
		OptimizeFor:    "revenue",
		Candidates:     candidates,
	}
	result.RevenueImprovement = best.Revenue - currentRevenue
	result.RevenueImprovementPct = pctOf(result.RevenueImprovement, currentRevenue)

	if cost != nil {
		currentProfit := (req.CurrentPrice - *cost) * currentDemand
		result.OptimizeFor = "profit"
		result.Cost = cost
		result.MinProfitPrice = minProfitPrice
		result.OptimalProfit = *best.Profit
		result.OptimalMarginPct = *best.ProfitMarginPct
		result.CurrentProfit = currentProfit
		result.CurrentMarginPct = costs.MarginPct(req.CurrentPrice, *cost)
		result.ProfitImprovement = *best.Profit - currentProfit
		result.ProfitImprovementPct = pctOf(result.ProfitImprovement, currentProfit)
	}

	return result, nil
}

// evaluateAll queries the predictor for every grid point. Evaluations run on
// a small worker pool; results land in their grid slot so order is stable.
func (o *Optimizer) evaluateAll(req Request, grid []float64, cost *float64) ([]models.CandidateEvaluation, error) {
	evaluations := make([]models.CandidateEvaluation, len(grid))
	errs := make([]error, len(grid))

	var wg sync.WaitGroup
	indices := make(chan int)
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				price := grid[i]
				predicted, err := o.predictor.Predict(price, req.Identity, req.Context)
				if err != nil {
					errs[i] = err
					continue
				}
				e := models.CandidateEvaluation{
					Price:           price,
					PredictedDemand: predicted,
					Revenue:         price * predicted,
				}
				if cost != nil {
					profit := (price - *cost) * predicted
					margin := costs.MarginPct(price, *cost)
					e.Profit = &profit
					e.ProfitMarginPct = &margin
				}
				evaluations[i] = e
			}
		}()
	}
	for i := range grid {
		indices <- i
	}
	close(indices)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("demand prediction failed at price %.2f: %w", grid[i], err)
		}
	}
	return evaluations, nil
}

func (o *Optimizer) noProfitableResult(req Request, cost *float64, minProfitPrice float64) *models.OptimizationResult {
	o.logger.WithFields(logrus.Fields{
		"venue":   req.Identity.Venue,
		"product": req.Identity.Product,
	}).Warn("No profitable price in search window")

	result := &models.OptimizationResult{
		OptimalPrice:      req.CurrentPrice,
		CurrentPrice:      req.CurrentPrice,
		NoProfitablePrice: true,
		OptimizeFor:       "revenue",
	}
	if cost != nil {
		result.OptimizeFor = "profit"
		result.Cost = cost
		result.MinProfitPrice = minProfitPrice
	}
	return result
}

// priceGrid enumerates lower + i*step strictly below upper, then upper
// itself, so both window edges are always candidates regardless of whether
// the span divides evenly by the step.
func priceGrid(lower, upper, step float64) []float64 {
	if upper < lower {
		return nil
	}
	var grid []float64
	for p := lower; p < upper-gridEpsilon; p += step {
		grid = append(grid, p)
	}
	return append(grid, upper)
}

// pctOf guards the zero baseline: improvements over a zero base report 0%.
func pctOf(delta, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return delta / base * 100
}
