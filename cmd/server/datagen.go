package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pourprice/server/config"
	"pourprice/server/internal/database"
	"pourprice/server/internal/datagen"
	"pourprice/server/internal/models"
)

var (
	datagenVenues   int
	datagenMenuSize int
	datagenSales    int
	datagenSeed     int64
	datagenSalesCSV string
)

var datagenCmd = &cobra.Command{
	Use:   "datagen",
	Short: "Generate synthetic venues, menus and sales data",
	Long: `Generate a synthetic market: venues with coordinates, bottle menus
with per-venue price levels, and a sales history CSV suitable for training
a demand model.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		store, err := database.Open(cfg.Server.DatabasePath, logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		generator := datagen.New(datagenSeed, logger)
		venues := generator.Venues(datagenVenues)
		if err := store.UpsertVenues(venues); err != nil {
			return fmt.Errorf("failed to store venues: %w", err)
		}

		observedAt := time.Now().UTC().Truncate(24 * time.Hour)
		menus := make(map[string][]models.ProductListing, len(venues))
		for _, venue := range venues {
			menu := generator.Menu(datagenMenuSize)
			menus[venue.Name] = menu
			if err := flushRecords(store.DB(), datagen.PriceRecords(venue.Name, menu, observedAt)); err != nil {
				return fmt.Errorf("failed to store price records: %w", err)
			}
		}

		logger.WithFields(logrus.Fields{
			"venues": len(venues),
			"seed":   datagenSeed,
		}).Info("Generated venues and menus")

		if datagenSalesCSV != "" {
			sales := generator.Sales(menus, datagenSales)
			if err := datagen.WriteCSV(datagenSalesCSV, sales); err != nil {
				return fmt.Errorf("failed to write sales file: %w", err)
			}
			logger.WithFields(logrus.Fields{
				"sales": len(sales),
				"file":  datagenSalesCSV,
			}).Info("Wrote sales history")
		}
		return nil
	},
}

func init() {
	datagenCmd.Flags().IntVar(&datagenVenues, "venues", 8, "Number of venues to generate")
	datagenCmd.Flags().IntVar(&datagenMenuSize, "menu-size", 12, "Bottles per venue menu")
	datagenCmd.Flags().IntVar(&datagenSales, "sales", 5000, "Number of sales rows to generate")
	datagenCmd.Flags().Int64Var(&datagenSeed, "seed", 42, "Random seed")
	datagenCmd.Flags().StringVar(&datagenSalesCSV, "sales-csv", "", "Write a sales history CSV to this path")
}
