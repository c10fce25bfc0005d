package api

import (
	"errors"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pourprice/server/internal/benchmark"
	"pourprice/server/internal/database"
	"pourprice/server/internal/demand"
	"pourprice/server/internal/engine"
	"pourprice/server/internal/models"
	"pourprice/server/internal/queue"
	"pourprice/server/internal/scheduler"
)

// demandPredictionPoints is the number of prices probed by the demand
// prediction endpoint, spanning 70% to 130% of the current price.
const demandPredictionPoints = 13

type Handler struct {
	store      *database.Store
	benchmarks *benchmark.Store
	engine     *engine.Engine
	predictor  demand.Predictor // nil when no demand model is loaded
	queue      *queue.RecordQueue
	scheduler  *scheduler.Scheduler
	logger     *logrus.Logger
}

func NewHandler(
	store *database.Store,
	benchmarks *benchmark.Store,
	eng *engine.Engine,
	predictor demand.Predictor,
	recordQueue *queue.RecordQueue,
	sched *scheduler.Scheduler,
	logger *logrus.Logger,
) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		store:      store,
		benchmarks: benchmarks,
		engine:     eng,
		predictor:  predictor,
		queue:      recordQueue,
		scheduler:  sched,
		logger:     logger,
	}
}

// demandSignals are the optional request fields overriding the default
// wall-clock demand context.
type demandSignals struct {
	DayOfWeek      *int     `json:"day_of_week"`
	Hour           *int     `json:"hour"`
	IsWeekend      *bool    `json:"is_weekend"`
	IsHoliday      *bool    `json:"is_holiday"`
	EventType      string   `json:"event_type"`
	InventoryLevel *float64 `json:"inventory_level"`
	Month          *int     `json:"month"`
}

func (s demandSignals) context() models.DemandContext {
	ctx := models.DefaultContext(time.Now())
	if s.DayOfWeek != nil {
		ctx.DayOfWeek = *s.DayOfWeek
		ctx.IsWeekend = ctx.DayOfWeek >= 4
	}
	if s.Hour != nil {
		ctx.Hour = *s.Hour
	}
	if s.IsWeekend != nil {
		ctx.IsWeekend = *s.IsWeekend
	}
	if s.IsHoliday != nil {
		ctx.IsHoliday = *s.IsHoliday
	}
	if s.EventType != "" {
		ctx.EventType = s.EventType
	}
	if s.InventoryLevel != nil {
		ctx.InventoryLevel = *s.InventoryLevel
	}
	if s.Month != nil {
		ctx.Month = *s.Month
	}
	return ctx
}

type recommendationRequest struct {
	Venue  string  `json:"venue" binding:"required"`
	Bottle string  `json:"bottle" binding:"required"`
	Type   string  `json:"type" binding:"required"`
	Price  float64 `json:"price" binding:"required"`
	demandSignals
}

type bulkRecommendationRequest struct {
	Venue string `json:"venue"`
	demandSignals
}

type demandPredictionRequest struct {
	Venue  string  `json:"venue" binding:"required"`
	Bottle string  `json:"bottle" binding:"required"`
	Type   string  `json:"type" binding:"required"`
	Price  float64 `json:"price"`
	demandSignals
}

type recordPayload struct {
	Venue      string    `json:"venue" binding:"required"`
	Product    string    `json:"product" binding:"required"`
	Category   string    `json:"category" binding:"required"`
	Price      float64   `json:"price" binding:"required"`
	ObservedAt time.Time `json:"observed_at"`
}

// GetVenues lists the venues appearing in the record set.
func (h *Handler) GetVenues(c *gin.Context) {
	venues, err := h.store.VenueNames()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get venues")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get venues"})
		return
	}

	c.JSON(http.StatusOK, venues)
}

// GetProducts returns the current menu of one venue.
func (h *Handler) GetProducts(c *gin.Context) {
	venue := c.Query("venue")
	if venue == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "venue parameter required"})
		return
	}

	products, err := h.store.GetProducts(venue)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get products")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get products"})
		return
	}

	c.JSON(http.StatusOK, products)
}

// GetStatus reports readiness of the stores and models.
func (h *Handler) GetStatus(c *gin.Context) {
	count, err := h.store.CountRecords()
	if err != nil {
		h.logger.WithError(err).Error("Failed to count records")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get status"})
		return
	}

	status := gin.H{
		"records":                count,
		"benchmarks_ready":       h.benchmarks.Ready(),
		"demand_model_available": h.predictor != nil,
	}
	if snapshot, err := h.benchmarks.Snapshot(); err == nil {
		status["benchmarks_computed_at"] = snapshot.ComputedAt
	}

	c.JSON(http.StatusOK, status)
}

// GetMarketAnalysis returns the venue premium table and category medians from
// the current snapshot.
func (h *Handler) GetMarketAnalysis(c *gin.Context) {
	snapshot, err := h.benchmarks.Snapshot()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Benchmarks not computed yet"})
		return
	}

	type vpiEntry struct {
		Venue      string  `json:"venue"`
		VPI        float64 `json:"vpi"`
		PremiumPct float64 `json:"premium_pct"`
	}
	vpi := make([]vpiEntry, 0, len(snapshot.VenuePremiumIndex))
	for venue, index := range snapshot.VenuePremiumIndex {
		vpi = append(vpi, vpiEntry{Venue: venue, VPI: index, PremiumPct: (index - 1) * 100})
	}
	sort.Slice(vpi, func(i, j int) bool { return vpi[i].VPI > vpi[j].VPI })

	type medianEntry struct {
		Type        string  `json:"type"`
		MedianPrice float64 `json:"median_price"`
	}
	medians := make([]medianEntry, 0, len(snapshot.TypeMedians))
	for category, median := range snapshot.TypeMedians {
		medians = append(medians, medianEntry{Type: category, MedianPrice: median})
	}
	sort.Slice(medians, func(i, j int) bool { return medians[i].MedianPrice > medians[j].MedianPrice })

	c.JSON(http.StatusOK, gin.H{
		"vpi":                    vpi,
		"type_medians":           medians,
		"global_median":          snapshot.GlobalMedian,
		"record_count":           snapshot.RecordCount,
		"computed_at":            snapshot.ComputedAt,
		"demand_model_available": h.predictor != nil,
	})
}

// GetBenchmarks returns the raw benchmark snapshot.
func (h *Handler) GetBenchmarks(c *gin.Context) {
	snapshot, err := h.benchmarks.Snapshot()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Benchmarks not computed yet"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetRecommendation produces one price recommendation.
func (h *Handler) GetRecommendation(c *gin.Context) {
	var req recommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	ctx := req.context()
	rec, err := h.engine.Recommend(engine.Request{
		Identity:     models.ProductIdentity{Venue: req.Venue, Product: req.Bottle, Category: req.Type},
		CurrentPrice: req.Price,
		Context:      &ctx,
	})
	if err != nil {
		if errors.Is(err, benchmark.ErrNotComputed) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Benchmarks not computed yet"})
			return
		}
		h.logger.WithError(err).WithFields(logrus.Fields{
			"venue":  req.Venue,
			"bottle": req.Bottle,
		}).Error("Failed to produce recommendation")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// GetBulkRecommendations runs the engine over every product of a venue (or
// all venues). Individual failures become error entries without aborting the
// run.
func (h *Handler) GetBulkRecommendations(c *gin.Context) {
	// An empty or absent body means all venues with default signals.
	var req bulkRecommendationRequest
	_ = c.ShouldBindJSON(&req)

	venues := []string{req.Venue}
	if req.Venue == "" {
		names, err := h.store.VenueNames()
		if err != nil {
			h.logger.WithError(err).Error("Failed to list venues")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list venues"})
			return
		}
		venues = names
	}

	ctx := req.context()
	var requests []engine.Request
	for _, venue := range venues {
		menu, err := h.store.GetProducts(venue)
		if err != nil {
			h.logger.WithError(err).WithField("venue", venue).Error("Failed to load venue menu")
			continue
		}
		for _, item := range menu {
			requests = append(requests, engine.Request{
				Identity:     models.ProductIdentity{Venue: venue, Product: item.Product, Category: item.Category},
				CurrentPrice: item.Price,
				Context:      &ctx,
			})
		}
	}

	results := h.engine.RecommendBulk(requests)
	response := make([]gin.H, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			response = append(response, gin.H{
				"venue":   r.Identity.Venue,
				"product": r.Identity.Product,
				"error":   r.Err.Error(),
			})
			continue
		}
		response = append(response, gin.H{"recommendation": r.Recommendation})
	}

	c.JSON(http.StatusOK, response)
}

// GetDemandPrediction probes the demand model over a price range around the
// current price.
func (h *Handler) GetDemandPrediction(c *gin.Context) {
	if h.predictor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Demand model not available"})
		return
	}

	var req demandPredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters: venue, bottle, type"})
		return
	}
	currentPrice := req.Price
	if currentPrice <= 0 {
		currentPrice = 300
	}

	identity := models.ProductIdentity{Venue: req.Venue, Product: req.Bottle, Category: req.Type}
	ctx := req.context()

	type prediction struct {
		Price           float64 `json:"price"`
		PredictedDemand float64 `json:"predicted_demand"`
		Revenue         float64 `json:"revenue"`
	}
	predictions := make([]prediction, 0, demandPredictionPoints)
	for i := 0; i < demandPredictionPoints; i++ {
		price := currentPrice * (0.7 + float64(i)*0.05)
		d, err := h.predictor.Predict(price, identity, ctx)
		if err != nil {
			if errors.Is(err, demand.ErrModelNotTrained) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Demand model not available"})
				return
			}
			h.logger.WithError(err).Error("Demand prediction failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Demand prediction failed"})
			return
		}
		predictions = append(predictions, prediction{
			Price:           price,
			PredictedDemand: d,
			Revenue:         price * d,
		})
	}

	c.JSON(http.StatusOK, predictions)
}

// IngestRecords accepts a batch of price observations and queues them for
// persistence.
func (h *Handler) IngestRecords(c *gin.Context) {
	var payload []recordPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid record batch"})
		return
	}
	if len(payload) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty record batch"})
		return
	}

	records := make([]*models.PriceRecord, 0, len(payload))
	for _, p := range payload {
		if p.Price <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Record prices must be positive"})
			return
		}
		observedAt := p.ObservedAt
		if observedAt.IsZero() {
			observedAt = time.Now().UTC()
		}
		records = append(records, &models.PriceRecord{
			Venue:      p.Venue,
			Product:    p.Product,
			Category:   p.Category,
			Price:      p.Price,
			ObservedAt: observedAt,
		})
	}

	if err := h.queue.Push(records); err != nil {
		h.logger.WithError(err).Error("Failed to enqueue record batch")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ingestion queue unavailable"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"queued": len(records)})
}

// Recompute triggers an immediate benchmark rebuild.
func (h *Handler) Recompute(c *gin.Context) {
	if err := h.scheduler.RunNow(); err != nil {
		h.logger.WithError(err).Error("Manual benchmark recompute failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	snapshot, err := h.benchmarks.Snapshot()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "recomputed",
		"record_count": snapshot.RecordCount,
		"computed_at":  snapshot.ComputedAt,
	})
}
