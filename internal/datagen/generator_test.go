package datagen

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pourprice/server/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestVenues(t *testing.T) {
	g := New(42, quietLogger())

	venues := g.Venues(3)
	require.Len(t, venues, 3)
	for _, v := range venues {
		assert.NotEmpty(t, v.Name)
		require.NotNil(t, v.Latitude)
		require.NotNil(t, v.Longitude)
		assert.GreaterOrEqual(t, *v.Latitude, -90.0)
		assert.LessOrEqual(t, *v.Latitude, 90.0)
	}
}

func TestMenu(t *testing.T) {
	g := New(42, quietLogger())

	menu := g.Menu(8)
	require.Len(t, menu, 8)

	seen := map[string]bool{}
	for _, item := range menu {
		assert.False(t, seen[item.Product], "menu repeats %s", item.Product)
		seen[item.Product] = true
		assert.Greater(t, item.Price, 0.0)
	}

	// Oversized requests are capped at the catalog size.
	assert.Len(t, g.Menu(100), len(catalogTemplate))
}

func TestSales_ShapesAndRanges(t *testing.T) {
	g := New(42, quietLogger())
	menus := map[string][]models.ProductListing{
		"Bar A": g.Menu(5),
		"Bar B": g.Menu(5),
	}

	sales := g.Sales(menus, 500)
	require.Len(t, sales, 500)

	for _, s := range sales {
		assert.GreaterOrEqual(t, s.BottlesSold, 0)
		assert.GreaterOrEqual(t, s.DayOfWeek, 0)
		assert.LessOrEqual(t, s.DayOfWeek, 6)
		assert.True(t, s.Hour <= 2 || s.Hour >= 18, "hour %d outside trading hours", s.Hour)
		assert.Contains(t, eventMultipliers, s.EventType)
		assert.GreaterOrEqual(t, s.InventoryLevel, 0.1)
		assert.LessOrEqual(t, s.InventoryLevel, 1.0)
		assert.Equal(t, s.IsWeekend, s.DayOfWeek >= 4)
		assert.Equal(t, s.IsHoliday, s.EventType == "holiday")
		assert.InDelta(t, s.Price*float64(s.BottlesSold), s.Revenue, 0.01)
	}
}

func TestSales_PriceElasticity(t *testing.T) {
	g := New(42, quietLogger())

	cheap := map[string][]models.ProductListing{
		"Bar A": {{Product: "Well Vodka", Category: "Vodka", Price: 150}},
	}
	expensive := map[string][]models.ProductListing{
		"Bar A": {{Product: "Don Julio 1942", Category: "Tequila", Price: 900}},
	}

	cheapTotal := 0
	for _, s := range g.Sales(cheap, 300) {
		cheapTotal += s.BottlesSold
	}
	expensiveTotal := 0
	for _, s := range g.Sales(expensive, 300) {
		expensiveTotal += s.BottlesSold
	}

	assert.Greater(t, cheapTotal, expensiveTotal)
}

func TestSales_Reproducible(t *testing.T) {
	menus := map[string][]models.ProductListing{
		"Bar A": {{Product: "Grey Goose", Category: "Vodka", Price: 300}},
	}

	first := New(7, quietLogger()).Sales(menus, 50)
	second := New(7, quietLogger()).Sales(menus, 50)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].BottlesSold, second[i].BottlesSold)
		assert.Equal(t, first[i].Price, second[i].Price)
	}
}

func TestPriceRecords(t *testing.T) {
	observed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	menu := []models.ProductListing{
		{Product: "Grey Goose", Category: "Vodka", Price: 300},
		{Product: "Hendrick's", Category: "Gin", Price: 280},
	}

	records := PriceRecords("Bar A", menu, observed)
	require.Len(t, records, 2)
	assert.Equal(t, "Bar A", records[0].Venue)
	assert.Equal(t, "Grey Goose", records[0].Product)
	assert.Equal(t, observed, records[0].ObservedAt)
}

func TestWriteCSV(t *testing.T) {
	g := New(42, quietLogger())
	menus := map[string][]models.ProductListing{"Bar A": g.Menu(3)}
	sales := g.Sales(menus, 20)

	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, WriteCSV(path, sales))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 21)
	assert.Equal(t, "date", rows[0][0])
	assert.Equal(t, "bottles_sold", rows[0][5])
	assert.Len(t, rows[1], 14)
}
