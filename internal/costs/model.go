package costs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"pourprice/server/internal/models"
)

var (
	// ErrInvalidMargin is returned when a margin fraction of 1.0 or more is
	// configured or requested; no finite price can satisfy it.
	ErrInvalidMargin = errors.New("profit margin must be below 1.0")
)

// DefaultMinMargin is the minimum profit margin assumed when no cost
// configuration is supplied.
const DefaultMinMargin = 0.30

// priceCostFraction is the share of the selling price assumed to be cost when
// estimating costs from prices.
const priceCostFraction = 0.40

// categoryCostDefaults is the last-resort cost table, keyed by category.
var categoryCostDefaults = map[string]float64{
	"Vodka":             150.0,
	"Tequila":           200.0,
	"Whiskey & Bourbon": 180.0,
	"Scotch":            250.0,
	"Champagne":         300.0,
	"Gin":               140.0,
	"Rum":               130.0,
	"Cognac":            350.0,
}

// flatCostDefault covers categories the default table has never heard of.
const flatCostDefault = 175.0

// configDocument is the on-disk cost configuration shape.
type configDocument struct {
	ProductCosts    map[string]float64 `json:"product_costs"`
	TypeCosts       map[string]float64 `json:"type_costs"`
	MinProfitMargin float64            `json:"min_profit_margin_pct"`
}

// Model resolves per-product costs and enforces the margin floor. A Model is
// immutable after construction and safe for concurrent use.
type Model struct {
	productCosts      map[string]float64 // normalized product key -> cost
	typeCosts         map[string]float64 // category -> default cost
	minMargin         float64            // fraction in [0,1)
	estimateFromPrice bool
}

// Default returns a model with no configured costs; every lookup falls
// through to price-based estimation and the fixed category table.
func Default() *Model {
	return &Model{
		productCosts:      map[string]float64{},
		typeCosts:         map[string]float64{},
		minMargin:         DefaultMinMargin,
		estimateFromPrice: true,
	}
}

// Load reads a cost configuration document. A malformed document or a margin
// at or above 1.0 is a configuration error; the caller cannot serve
// profit-aware recommendations without a valid one.
func Load(path string, logger *logrus.Logger) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cost config: %w", err)
	}

	var doc configDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse cost config: %w", err)
	}

	m := &Model{
		productCosts: make(map[string]float64, len(doc.ProductCosts)),
		typeCosts:    make(map[string]float64, len(doc.TypeCosts)),
		minMargin:    DefaultMinMargin,
	}
	for product, cost := range doc.ProductCosts {
		m.productCosts[models.NormalizeProductKey(product)] = cost
	}
	for category, cost := range doc.TypeCosts {
		m.typeCosts[strings.TrimSpace(category)] = cost
	}
	if doc.MinProfitMargin != 0 {
		if doc.MinProfitMargin >= 1.0 {
			return nil, fmt.Errorf("%w: got %.2f", ErrInvalidMargin, doc.MinProfitMargin)
		}
		m.minMargin = doc.MinProfitMargin
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"product_costs": len(m.productCosts),
			"type_costs":    len(m.typeCosts),
			"min_margin":    m.minMargin,
		}).Info("Loaded cost configuration")
	}
	return m, nil
}

// MinMargin returns the configured minimum profit margin fraction.
func (m *Model) MinMargin() float64 {
	return m.minMargin
}

// Cost resolves a cost for a product. The chain never fails: product cost,
// then category default, then a fraction of the fallback price (when no
// configuration was supplied), then the fixed category table, then a flat
// constant.
func (m *Model) Cost(product, category string, fallbackPrice float64) float64 {
	if cost, ok := m.productCosts[models.NormalizeProductKey(product)]; ok {
		return cost
	}
	if cost, ok := m.typeCosts[category]; ok {
		return cost
	}
	if m.estimateFromPrice && fallbackPrice > 0 {
		return fallbackPrice * priceCostFraction
	}
	if cost, ok := categoryCostDefaults[category]; ok {
		return cost
	}
	return flatCostDefault
}

// MinimumPrice returns the lowest price that still achieves the configured
// minimum margin: cost / (1 - margin).
func (m *Model) MinimumPrice(cost float64) (float64, error) {
	return MinimumPrice(cost, m.minMargin)
}

// MinimumPrice computes cost / (1 - margin) for an explicit margin fraction.
func MinimumPrice(cost, margin float64) (float64, error) {
	if margin >= 1.0 {
		return 0, fmt.Errorf("%w: got %.2f", ErrInvalidMargin, margin)
	}
	return cost / (1 - margin), nil
}

// MarginPct returns the profit margin percentage of a price over a cost;
// zero when the price is non-positive.
func MarginPct(price, cost float64) float64 {
	if price <= 0 {
		return 0
	}
	return (price - cost) / price * 100
}

// IsProfitable reports whether a price meets the configured margin floor.
func (m *Model) IsProfitable(price, cost float64) bool {
	return MarginPct(price, cost) >= m.minMargin*100
}
