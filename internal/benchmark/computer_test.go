package benchmark

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pourprice/server/internal/models"
)

func rec(venue, product, category string, price float64) models.PriceRecord {
	return models.PriceRecord{Venue: venue, Product: product, Category: category, Price: price}
}

func TestCompute_EmptyDataset(t *testing.T) {
	c := NewComputer(logrus.New())

	_, err := c.Compute(nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = c.Compute([]models.PriceRecord{})
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestCompute_Medians(t *testing.T) {
	c := NewComputer(logrus.New())

	records := []models.PriceRecord{
		rec("A", "Grey Goose", "Vodka", 300),
		rec("B", "Grey Goose ", "Vodka", 400), // same key after normalization
		rec("A", "Patron", "Tequila", 500),
		rec("B", "Patron", "Tequila", 600),
	}

	b, err := c.Compute(records)
	require.NoError(t, err)

	assert.InDelta(t, 450.0, b.GlobalMedian, 1e-9) // median of 300,400,500,600
	assert.InDelta(t, 350.0, b.BrandMedians["grey goose"], 1e-9)
	assert.InDelta(t, 550.0, b.BrandMedians["patron"], 1e-9)
	assert.InDelta(t, 350.0, b.TypeMedians["Vodka"], 1e-9)
	assert.InDelta(t, 550.0, b.TypeMedians["Tequila"], 1e-9)
	assert.Equal(t, 4, b.RecordCount)
}

func TestCompute_PremiumScores(t *testing.T) {
	c := NewComputer(logrus.New())

	records := []models.PriceRecord{
		rec("A", "House Vodka", "Vodka", 200),
		rec("A", "Premium Vodka", "Vodka", 400),
		rec("B", "House Vodka", "Vodka", 200),
		rec("B", "Premium Vodka", "Vodka", 400),
	}

	b, err := c.Compute(records)
	require.NoError(t, err)

	// Type median for Vodka is 300; brand medians are 200 and 400.
	assert.InDelta(t, 200.0/300.0, b.BrandPremiumScore["house vodka"], 1e-9)
	assert.InDelta(t, 400.0/300.0, b.BrandPremiumScore["premium vodka"], 1e-9)

	// A brand whose median equals its type median scores exactly 1.0.
	single, err := c.Compute([]models.PriceRecord{rec("A", "Only Bottle", "Gin", 150)})
	require.NoError(t, err)
	assert.Equal(t, 1.0, single.BrandPremiumScore["only bottle"])
}

func TestCompute_PremiumScoreCategoryIsDeterministic(t *testing.T) {
	c := NewComputer(logrus.New())

	// "Crossover" appears once in each of two categories; the tie must break
	// alphabetically ("Gin" < "Vodka") no matter the record order.
	forward := []models.PriceRecord{
		rec("A", "Crossover", "Vodka", 300),
		rec("B", "Crossover", "Gin", 300),
		rec("A", "Other", "Gin", 100),
		rec("B", "Other", "Vodka", 500),
	}
	reversed := []models.PriceRecord{forward[3], forward[2], forward[1], forward[0]}

	b1, err := c.Compute(forward)
	require.NoError(t, err)
	b2, err := c.Compute(reversed)
	require.NoError(t, err)

	assert.Equal(t, b1.BrandPremiumScore["crossover"], b2.BrandPremiumScore["crossover"])
	// Gin median is 200, so the crossover score is 300/200.
	assert.InDelta(t, 1.5, b1.BrandPremiumScore["crossover"], 1e-9)
}

func TestCompute_VenuePremiumIndex(t *testing.T) {
	c := NewComputer(logrus.New())

	records := []models.PriceRecord{
		rec("Cheap Bar", "A", "Vodka", 100),
		rec("Cheap Bar", "B", "Vodka", 200),
		rec("Fancy Club", "A", "Vodka", 300),
		rec("Fancy Club", "B", "Vodka", 400),
	}

	b, err := c.Compute(records)
	require.NoError(t, err)

	// Global median 250; venue medians 150 and 350.
	assert.InDelta(t, 0.6, b.VenuePremiumIndex["Cheap Bar"], 1e-9)
	assert.InDelta(t, 1.4, b.VenuePremiumIndex["Fancy Club"], 1e-9)

	// A venue whose median equals the global median indexes exactly 1.0.
	even, err := c.Compute([]models.PriceRecord{
		rec("Solo", "A", "Vodka", 250),
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, even.VenuePremiumIndex["Solo"])
}

func TestEstimateMarketPrice(t *testing.T) {
	b := &models.Benchmarks{
		GlobalMedian: 250,
		BrandMedians: map[string]float64{"grey goose": 350},
		TypeMedians:  map[string]float64{"Vodka": 300},
	}

	got, ok := b.EstimateMarketPrice("Grey Goose", "Vodka")
	assert.True(t, ok)
	assert.Equal(t, 350.0, got)

	got, ok = b.EstimateMarketPrice("Unknown Bottle", "Vodka")
	assert.True(t, ok)
	assert.Equal(t, 300.0, got)

	got, ok = b.EstimateMarketPrice("Unknown Bottle", "Mead")
	assert.True(t, ok)
	assert.Equal(t, 250.0, got)

	empty := &models.Benchmarks{}
	_, ok = empty.EstimateMarketPrice("Unknown", "Unknown")
	assert.False(t, ok)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 5.0, median([]float64{5}))
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))

	// Input order is preserved
	in := []float64{9, 1, 5}
	median(in)
	assert.Equal(t, []float64{9, 1, 5}, in)
}

type staticSource struct {
	records []models.PriceRecord
	err     error
}

func (s *staticSource) DatasetSnapshot(venues []string) ([]models.PriceRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(venues) == 0 {
		return s.records, nil
	}
	var out []models.PriceRecord
	for _, r := range s.records {
		for _, v := range venues {
			if r.Venue == v {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func TestStore_RecomputeAndSnapshot(t *testing.T) {
	source := &staticSource{records: []models.PriceRecord{
		rec("A", "Grey Goose", "Vodka", 300),
		rec("B", "Grey Goose", "Vodka", 400),
	}}
	store := NewStore(NewComputer(logrus.New()), source, logrus.New())

	_, err := store.Snapshot()
	assert.ErrorIs(t, err, ErrNotComputed)
	assert.False(t, store.Ready())

	require.NoError(t, store.Recompute())
	assert.True(t, store.Ready())

	b, err := store.Snapshot()
	require.NoError(t, err)
	assert.InDelta(t, 350.0, b.GlobalMedian, 1e-9)
}

func TestStore_RecomputeFailureKeepsPreviousSnapshot(t *testing.T) {
	source := &staticSource{records: []models.PriceRecord{rec("A", "X", "Vodka", 100)}}
	store := NewStore(NewComputer(logrus.New()), source, logrus.New())
	require.NoError(t, store.Recompute())

	before, err := store.Snapshot()
	require.NoError(t, err)

	// An empty dataset fails the recompute but must not clobber the snapshot.
	source.records = nil
	assert.ErrorIs(t, store.Recompute(), ErrEmptyDataset)

	after, err := store.Snapshot()
	require.NoError(t, err)
	assert.Same(t, before, after)
}

func TestStore_VenueScope(t *testing.T) {
	source := &staticSource{records: []models.PriceRecord{
		rec("A", "X", "Vodka", 100),
		rec("B", "X", "Vodka", 900),
	}}
	store := NewStore(NewComputer(logrus.New()), source, logrus.New())

	store.SetVenueScope([]string{"A"})
	require.NoError(t, store.Recompute())

	b, err := store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 100.0, b.GlobalMedian)
	_, hasB := b.VenuePremiumIndex["B"]
	assert.False(t, hasB)
}

func TestStore_ConcurrentReadersDuringRecompute(t *testing.T) {
	source := &staticSource{records: []models.PriceRecord{rec("A", "X", "Vodka", 100)}}
	store := NewStore(NewComputer(logrus.New()), source, logrus.New())
	require.NoError(t, store.Recompute())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b, err := store.Snapshot()
				assert.NoError(t, err)
				assert.NotZero(t, b.GlobalMedian)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, store.Recompute())
	}
	wg.Wait()
}
