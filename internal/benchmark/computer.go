package benchmark

import (
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"pourprice/server/internal/models"
)

// ErrEmptyDataset is returned when benchmarks are computed over a dataset
// with no usable records.
var ErrEmptyDataset = errors.New("no price records to compute benchmarks from")

// Computer derives market statistics from a normalized price record dataset.
type Computer struct {
	logger *logrus.Logger
}

func NewComputer(logger *logrus.Logger) *Computer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Computer{logger: logger}
}

// Compute builds a complete benchmark snapshot from a dataset snapshot.
// The returned Benchmarks is never mutated afterwards.
func (c *Computer) Compute(records []models.PriceRecord) (*models.Benchmarks, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	allPrices := make([]float64, 0, len(records))
	brandPrices := map[string][]float64{}
	typePrices := map[string][]float64{}
	venuePrices := map[string][]float64{}
	// Category occurrences per product key, for the deterministic premium
	// score category choice.
	brandCategories := map[string]map[string]int{}

	for _, r := range records {
		key := r.NormalizedKey()
		allPrices = append(allPrices, r.Price)
		brandPrices[key] = append(brandPrices[key], r.Price)
		typePrices[r.Category] = append(typePrices[r.Category], r.Price)
		venuePrices[r.Venue] = append(venuePrices[r.Venue], r.Price)
		if brandCategories[key] == nil {
			brandCategories[key] = map[string]int{}
		}
		brandCategories[key][r.Category]++
	}

	b := &models.Benchmarks{
		GlobalMedian:      median(allPrices),
		BrandMedians:      make(map[string]float64, len(brandPrices)),
		TypeMedians:       make(map[string]float64, len(typePrices)),
		BrandPremiumScore: make(map[string]float64, len(brandPrices)),
		VenuePremiumIndex: make(map[string]float64, len(venuePrices)),
		RecordCount:       len(records),
		ComputedAt:        time.Now().UTC(),
	}

	for key, prices := range brandPrices {
		b.BrandMedians[key] = median(prices)
	}
	for category, prices := range typePrices {
		b.TypeMedians[category] = median(prices)
	}

	// Brand premium score: brand median over the median of the brand's
	// category. The category is the most frequent one for the key, ties
	// broken alphabetically, so the score never depends on record order.
	for key, brandMedian := range b.BrandMedians {
		category := dominantCategory(brandCategories[key])
		typeMedian, ok := b.TypeMedians[category]
		if !ok || typeMedian <= 0 {
			b.BrandPremiumScore[key] = 1.0
			continue
		}
		b.BrandPremiumScore[key] = brandMedian / typeMedian
	}

	for venue, prices := range venuePrices {
		if b.GlobalMedian <= 0 {
			b.VenuePremiumIndex[venue] = 1.0
			continue
		}
		b.VenuePremiumIndex[venue] = median(prices) / b.GlobalMedian
	}

	c.logger.WithFields(logrus.Fields{
		"records":       len(records),
		"global_median": b.GlobalMedian,
		"brands":        len(b.BrandMedians),
		"types":         len(b.TypeMedians),
		"venues":        len(b.VenuePremiumIndex),
	}).Info("Computed market benchmarks")

	return b, nil
}

// dominantCategory picks the most frequent category, lexicographically
// smallest on ties.
func dominantCategory(counts map[string]int) string {
	best := ""
	bestCount := -1
	for category, count := range counts {
		if count > bestCount || (count == bestCount && category < best) {
			best = category
			bestCount = count
		}
	}
	return best
}

// median returns the middle value of the samples, averaging the two middle
// values for even counts. The input slice is not modified.
func median(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
