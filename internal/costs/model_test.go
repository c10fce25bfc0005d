package costs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cost_config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
		"product_costs": {"Grey Goose ": 120.5, "don julio 1942": 310},
		"type_costs": {"Vodka": 100},
		"min_profit_margin_pct": 0.25
	}`)

	m, err := Load(path, nil)
	require.NoError(t, err)

	// Product keys are normalized on load
	assert.Equal(t, 120.5, m.Cost("  GREY GOOSE", "Vodka", 0))
	assert.Equal(t, 310.0, m.Cost("Don Julio 1942", "Tequila", 0))
	assert.Equal(t, 100.0, m.Cost("Unknown Bottle", "Vodka", 0))
	assert.Equal(t, 0.25, m.MinMargin())
}

func TestLoad_InvalidMargin(t *testing.T) {
	path := writeConfig(t, `{"min_profit_margin_pct": 1.2}`)

	_, err := Load(path, nil)
	assert.ErrorIs(t, err, ErrInvalidMargin)
}

func TestLoad_MalformedDocument(t *testing.T) {
	path := writeConfig(t, `{"product_costs": "not a map"`)

	_, err := Load(path, nil)
	assert.Error(t, err)
}

func TestCost_FallbackChain(t *testing.T) {
	m := Default()

	// With default estimation enabled, cost is 40% of the current price
	assert.InDelta(t, 140.0, m.Cost("Unknown", "Vodka", 350), 1e-9)

	// Without a usable price, fall back to the fixed category table
	assert.Equal(t, 250.0, m.Cost("Unknown", "Scotch", 0))

	// Unknown category gets the flat constant
	assert.Equal(t, flatCostDefault, m.Cost("Unknown", "Mead", 0))
}

func TestCost_ConfiguredModelSkipsPriceEstimation(t *testing.T) {
	path := writeConfig(t, `{"type_costs": {"Gin": 90}}`)
	m, err := Load(path, nil)
	require.NoError(t, err)

	// A configured model never estimates from price; unknown categories go
	// straight to the fixed table.
	assert.Equal(t, 90.0, m.Cost("Unknown", "Gin", 400))
	assert.Equal(t, 150.0, m.Cost("Unknown", "Vodka", 400))
}

func TestMinimumPrice(t *testing.T) {
	got, err := MinimumPrice(80, 0.30)
	require.NoError(t, err)
	assert.InDelta(t, 114.2857, got, 1e-3)

	// Strictly increasing in margin for fixed cost
	prev := 0.0
	for _, margin := range []float64{0, 0.1, 0.3, 0.5, 0.9, 0.99} {
		p, err := MinimumPrice(80, margin)
		require.NoError(t, err)
		assert.Greater(t, p, prev)
		prev = p
	}

	_, err = MinimumPrice(80, 1.0)
	assert.ErrorIs(t, err, ErrInvalidMargin)
	_, err = MinimumPrice(80, 1.5)
	assert.ErrorIs(t, err, ErrInvalidMargin)
}

func TestMarginPct(t *testing.T) {
	assert.InDelta(t, 60.0, MarginPct(200, 80), 1e-9)
	assert.Equal(t, 0.0, MarginPct(0, 80))
	assert.Equal(t, 0.0, MarginPct(-10, 80))
	// Selling below cost yields a negative margin
	assert.Less(t, MarginPct(50, 80), 0.0)
}

func TestIsProfitable(t *testing.T) {
	m := Default() // 30% floor

	assert.True(t, m.IsProfitable(200, 80))   // 60% margin
	assert.False(t, m.IsProfitable(100, 80))  // 20% margin
	assert.False(t, m.IsProfitable(0, 80))    // degenerate price
	assert.True(t, m.IsProfitable(114.29, 80))
}
