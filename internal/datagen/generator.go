package datagen

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"

	"pourprice/server/internal/models"
)

// Demand shape constants for the synthetic sales history. Demand follows a
// constant-elasticity curve normalized to a $400 bottle, with weekend,
// time-of-day, event, scarcity and seasonal multipliers on top.
const (
	priceElasticity = -1.8
	pivotPrice      = 400.0
	baseDemand      = 10.0

	fridaySaturdayMultiplier = 2.5
	sundayMultiplier         = 1.8
	peakHourMultiplier       = 1.5
	eveningMultiplier        = 1.2
	scarcityMultiplier       = 1.1
	seasonalMultiplier       = 1.2

	scarcityThreshold = 0.2
	historyDays       = 180
)

// eventMultipliers maps event types to their demand effect.
var eventMultipliers = map[string]float64{
	"regular":       1.0,
	"DJ":            1.3,
	"holiday":       1.5,
	"concert":       1.4,
	"private_event": 0.8,
}

// eventWeights drives the weighted event type draw, heavily favoring regular
// nights.
var eventWeights = []struct {
	event  string
	weight float64
}{
	{"regular", 0.70},
	{"DJ", 0.15},
	{"holiday", 0.05},
	{"concert", 0.08},
	{"private_event", 0.02},
}

// catalogTemplate is the brand/category/base-price pool synthetic menus draw
// from.
var catalogTemplate = []models.ProductListing{
	{Product: "Grey Goose", Category: "Vodka", Price: 300},
	{Product: "Belvedere", Category: "Vodka", Price: 325},
	{Product: "Tito's", Category: "Vodka", Price: 250},
	{Product: "Don Julio 1942", Category: "Tequila", Price: 900},
	{Product: "Casamigos Blanco", Category: "Tequila", Price: 400},
	{Product: "Patron Silver", Category: "Tequila", Price: 375},
	{Product: "Macallan 12", Category: "Scotch", Price: 500},
	{Product: "Johnnie Walker Black", Category: "Scotch", Price: 350},
	{Product: "Hendrick's", Category: "Gin", Price: 280},
	{Product: "Bombay Sapphire", Category: "Gin", Price: 250},
	{Product: "Dom Perignon", Category: "Champagne", Price: 800},
	{Product: "Veuve Clicquot", Category: "Champagne", Price: 450},
	{Product: "Hennessy VS", Category: "Cognac", Price: 400},
	{Product: "Bacardi Superior", Category: "Rum", Price: 200},
	{Product: "Buffalo Trace", Category: "Whiskey & Bourbon", Price: 300},
}

// Sale is one synthetic sales observation, shaped like a demand model
// training row.
type Sale struct {
	Date           time.Time
	Venue          string
	Product        string
	Category       string
	Price          float64
	BottlesSold    int
	DayOfWeek      int // 0=Monday .. 6=Sunday
	Hour           int
	IsWeekend      bool
	IsHoliday      bool
	EventType      string
	InventoryLevel float64
	Month          int
	Revenue        float64
}

// Generator produces synthetic venues, menus and sales histories. A fixed
// seed yields a reproducible dataset.
type Generator struct {
	rng    *rand.Rand
	fake   faker.Faker
	logger *logrus.Logger
}

func New(seed int64, logger *logrus.Logger) *Generator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Generator{
		rng:    rand.New(rand.NewSource(seed)),
		fake:   faker.NewWithSeed(rand.NewSource(seed)),
		logger: logger,
	}
}

// Venues invents n venues with names and coordinates.
func (g *Generator) Venues(n int) []models.Venue {
	venues := make([]models.Venue, 0, n)
	for i := 0; i < n; i++ {
		lat := g.fake.Address().Latitude()
		lon := g.fake.Address().Longitude()
		venues = append(venues, models.Venue{
			Name:      fmt.Sprintf("%s %s", g.fake.Company().Name(), pickOne(g.rng, venueSuffixes)),
			Latitude:  &lat,
			Longitude: &lon,
		})
	}
	return venues
}

var venueSuffixes = []string{"Lounge", "Rooftop", "Club", "Bar", "Social"}

// Menu samples a venue menu from the catalog template, with a venue-specific
// price level so venues land on different premium indexes.
func (g *Generator) Menu(size int) []models.ProductListing {
	if size > len(catalogTemplate) {
		size = len(catalogTemplate)
	}
	perm := g.rng.Perm(len(catalogTemplate))

	// 0.8x to 1.3x venue price level
	level := 0.8 + g.rng.Float64()*0.5

	menu := make([]models.ProductListing, 0, size)
	for _, idx := range perm[:size] {
		item := catalogTemplate[idx]
		item.Price = math.Round(item.Price * level)
		menu = append(menu, item)
	}
	return menu
}

// PriceRecords converts venue menus into store-ready price observations.
func PriceRecords(venue string, menu []models.ProductListing, observedAt time.Time) []*models.PriceRecord {
	records := make([]*models.PriceRecord, 0, len(menu))
	for _, item := range menu {
		records = append(records, &models.PriceRecord{
			Venue:      venue,
			Product:    item.Product,
			Category:   item.Category,
			Price:      item.Price,
			ObservedAt: observedAt,
		})
	}
	return records
}

// Sales generates n sales observations over the trailing six months for the
// given venue menus.
func (g *Generator) Sales(menus map[string][]models.ProductListing, n int) []Sale {
	var pool []Sale
	for venue, menu := range menus {
		for _, item := range menu {
			pool = append(pool, Sale{Venue: venue, Product: item.Product, Category: item.Category, Price: item.Price})
		}
	}
	if len(pool) == 0 {
		return nil
	}

	end := time.Now()
	sales := make([]Sale, 0, n)
	for i := 0; i < n; i++ {
		s := pool[g.rng.Intn(len(pool))]
		basePrice := s.Price

		s.Date = end.AddDate(0, 0, -g.rng.Intn(historyDays))
		s.DayOfWeek = (int(s.Date.Weekday()) + 6) % 7
		s.IsWeekend = s.DayOfWeek >= 4
		s.Month = int(s.Date.Month())

		// Evening or late-night trading hours only.
		if g.rng.Float64() > 0.5 {
			s.Hour = g.rng.Intn(3) // 0-2 AM
		} else {
			s.Hour = 18 + g.rng.Intn(6) // 6-11 PM
		}

		s.EventType = g.drawEvent()
		s.IsHoliday = s.EventType == "holiday"
		s.InventoryLevel = round2(0.1 + g.rng.Float64()*0.9)

		// Prices drift a bit from night to night.
		s.Price = round2(basePrice * (0.85 + g.rng.Float64()*0.30))

		demand := baseDemand * math.Pow(basePrice/pivotPrice, priceElasticity)
		if s.IsWeekend {
			if s.DayOfWeek == 4 || s.DayOfWeek == 5 {
				demand *= fridaySaturdayMultiplier
			} else {
				demand *= sundayMultiplier
			}
		}
		if s.Hour >= 22 || s.Hour <= 2 {
			demand *= peakHourMultiplier
		} else if s.Hour >= 20 {
			demand *= eveningMultiplier
		}
		demand *= eventMultipliers[s.EventType]
		if s.InventoryLevel < scarcityThreshold {
			demand *= scarcityMultiplier
		}
		if s.Month == 6 || s.Month == 7 || s.Month == 8 || s.Month == 12 {
			demand *= seasonalMultiplier
		}
		demand *= 0.7 + g.rng.Float64()*0.6

		s.BottlesSold = int(math.Max(0, math.Round(demand)))
		s.Revenue = round2(s.Price * float64(s.BottlesSold))
		sales = append(sales, s)
	}

	g.logger.WithFields(logrus.Fields{
		"samples": len(sales),
		"venues":  len(menus),
	}).Info("Generated synthetic sales history")
	return sales
}

func (g *Generator) drawEvent() string {
	r := g.rng.Float64()
	cumulative := 0.0
	for _, ew := range eventWeights {
		cumulative += ew.weight
		if r < cumulative {
			return ew.event
		}
	}
	return "regular"
}

// WriteCSV writes sales in the training data layout.
func WriteCSV(path string, sales []Sale) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create sales file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{
		"date", "venue", "bottle", "type", "price", "bottles_sold",
		"day_of_week", "hour", "is_weekend", "is_holiday", "event_type",
		"inventory_level", "month", "revenue",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, s := range sales {
		row := []string{
			s.Date.Format("2006-01-02"),
			s.Venue,
			s.Product,
			s.Category,
			strconv.FormatFloat(s.Price, 'f', 2, 64),
			strconv.Itoa(s.BottlesSold),
			strconv.Itoa(s.DayOfWeek),
			strconv.Itoa(s.Hour),
			boolFlag(s.IsWeekend),
			boolFlag(s.IsHoliday),
			s.EventType,
			strconv.FormatFloat(s.InventoryLevel, 'f', 2, 64),
			strconv.Itoa(s.Month),
			strconv.FormatFloat(s.Revenue, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func pickOne(rng *rand.Rand, options []string) string {
	return options[rng.Intn(len(options))]
}
