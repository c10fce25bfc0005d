package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pourprice/server/config"
	"pourprice/server/internal/database"
	"pourprice/server/internal/engine"
	"pourprice/server/internal/models"
)

var (
	recommendVenue  string
	recommendBottle string
	recommendType   string
	recommendPrice  float64
	recommendOut    string
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Produce price recommendations without running the server",
	Long: `Produce recommendations from the record store in one shot. With
--bottle, --type and --price set, a single recommendation is printed as JSON.
Otherwise every product of the venue (or of all venues) is evaluated and the
results are exported as CSV.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		logger.SetOutput(os.Stderr)

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		store, err := database.Open(cfg.Server.DatabasePath, logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		benchmarks, eng, _, err := buildPricing(cfg, store, logger)
		if err != nil {
			return err
		}
		if err := benchmarks.Recompute(); err != nil {
			return fmt.Errorf("failed to compute benchmarks: %w", err)
		}

		if recommendBottle != "" {
			return recommendSingle(eng)
		}
		return exportRecommendations(store, eng)
	},
}

func recommendSingle(eng *engine.Engine) error {
	ctx := models.DefaultContext(time.Now())
	rec, err := eng.Recommend(engine.Request{
		Identity: models.ProductIdentity{
			Venue:    recommendVenue,
			Product:  recommendBottle,
			Category: recommendType,
		},
		CurrentPrice: recommendPrice,
		Context:      &ctx,
	})
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rec)
}

// exportRecommendations evaluates every product of the selected venues and
// writes one CSV row per product, failures included.
func exportRecommendations(store *database.Store, eng *engine.Engine) error {
	venues := []string{recommendVenue}
	if recommendVenue == "" {
		names, err := store.VenueNames()
		if err != nil {
			return fmt.Errorf("failed to list venues: %w", err)
		}
		venues = names
	}

	ctx := models.DefaultContext(time.Now())
	var requests []engine.Request
	for _, venue := range venues {
		menu, err := store.GetProducts(venue)
		if err != nil {
			return fmt.Errorf("failed to load menu for %s: %w", venue, err)
		}
		for _, item := range menu {
			requests = append(requests, engine.Request{
				Identity:     models.ProductIdentity{Venue: venue, Product: item.Product, Category: item.Category},
				CurrentPrice: item.Price,
				Context:      &ctx,
			})
		}
	}

	out := os.Stdout
	if recommendOut != "" && recommendOut != "-" {
		file, err := os.Create(recommendOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	writer := csv.NewWriter(out)
	header := []string{
		"venue", "product", "category", "current_price", "recommended_price",
		"delta_pct", "method", "reason",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, result := range eng.RecommendBulk(requests) {
		row := []string{result.Identity.Venue, result.Identity.Product, result.Identity.Category}
		if result.Err != nil {
			row = append(row, "", "", "", "error", result.Err.Error())
		} else {
			rec := result.Recommendation
			row = append(row,
				strconv.FormatFloat(rec.CurrentPrice, 'f', 2, 64),
				strconv.FormatFloat(rec.RecommendedPrice, 'f', 2, 64),
				strconv.FormatFloat(rec.DeltaPct, 'f', 2, 64),
				rec.Method,
				rec.Reason,
			)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func init() {
	recommendCmd.Flags().StringVar(&recommendVenue, "venue", "", "Venue name (all venues when omitted)")
	recommendCmd.Flags().StringVar(&recommendBottle, "bottle", "", "Bottle name for a single recommendation")
	recommendCmd.Flags().StringVar(&recommendType, "type", "", "Bottle category for a single recommendation")
	recommendCmd.Flags().Float64Var(&recommendPrice, "price", 0, "Current menu price for a single recommendation")
	recommendCmd.Flags().StringVar(&recommendOut, "out", "", "CSV output path for the export mode (stdout when omitted)")
}
