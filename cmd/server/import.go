package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"pourprice/server/config"
	"pourprice/server/internal/database"
	"pourprice/server/internal/models"
)

const importBatchSize = 500

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import competitor price records from a CSV file",
	Long: `Import price records from a CSV file with the columns
venue,product,category,price,observed_at. Records matching an existing
(venue, product, observed_at) observation update it in place.`,
	Args: cobra.ExactArgs(1),
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

		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer file.Close()

		reader := csv.NewReader(file)
		batch := make([]*models.PriceRecord, 0, importBatchSize)
		total := 0
		line := 0
		for {
			row, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("failed to read import file: %w", err)
			}
			line++
			if line == 1 && strings.EqualFold(row[0], "venue") {
				continue
			}

			record, err := parseRecordRow(row)
			if err != nil {
				logger.WithError(err).WithField("line", line).Warn("Skipping malformed row")
				continue
			}
			batch = append(batch, record)

			if len(batch) == importBatchSize {
				if err := flushRecords(store.DB(), batch); err != nil {
					return err
				}
				total += len(batch)
				batch = batch[:0]
			}
		}
		if len(batch) > 0 {
			if err := flushRecords(store.DB(), batch); err != nil {
				return err
			}
			total += len(batch)
		}

		logger.WithField("records", total).Info("Import complete")
		return nil
	},
}

func parseRecordRow(row []string) (*models.PriceRecord, error) {
	if len(row) < 4 {
		return nil, fmt.Errorf("expected at least 4 columns, got %d", len(row))
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", row[3], err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("non-positive price %v", price)
	}

	observedAt := time.Now().UTC()
	if len(row) > 4 && strings.TrimSpace(row[4]) != "" {
		observedAt, err = parseObservedAt(strings.TrimSpace(row[4]))
		if err != nil {
			return nil, err
		}
	}

	return &models.PriceRecord{
		Venue:      strings.TrimSpace(row[0]),
		Product:    strings.TrimSpace(row[1]),
		Category:   strings.TrimSpace(row[2]),
		Price:      price,
		ObservedAt: observedAt,
	}, nil
}

func parseObservedAt(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func flushRecords(db *gorm.DB, batch []*models.PriceRecord) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return database.UpsertRecords(tx, batch)
	})
}
