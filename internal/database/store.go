package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"pourprice/server/internal/models"
)

// ErrNotFound is returned by single-record lookups with no match.
var ErrNotFound = errors.New("record not found")

// Store is the sqlite-backed price record store. All methods are safe for
// concurrent use.
type Store struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&models.PriceRecord{}, &models.Venue{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	logger.WithField("path", path).Info("Opened price record database")
	return &Store{db: db, logger: logger}, nil
}

// DB exposes the underlying gorm handle for transactional callers.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertRecords inserts price records, updating category and price when the
// same observation (venue, product, observed_at) arrives again. It runs on
// the given handle so batch processors can wrap it in a transaction.
func UpsertRecords(tx *gorm.DB, records []*models.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "venue"}, {Name: "product"}, {Name: "observed_at"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "price"}),
	}).Create(records).Error
}

// UpsertVenues inserts venues by name, refreshing coordinates for known ones.
func (s *Store) UpsertVenues(venues []models.Venue) error {
	if len(venues) == 0 {
		return nil
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude"}),
	}).Create(&venues).Error
}

// GetVenues returns all known venues, name-sorted.
func (s *Store) GetVenues() ([]models.Venue, error) {
	var venues []models.Venue
	if err := s.db.Order("name").Find(&venues).Error; err != nil {
		return nil, err
	}
	return venues, nil
}

// VenueNames returns the distinct venue names appearing in the record set.
// Venues metadata rows are not required for a venue to show up here.
func (s *Store) VenueNames() ([]string, error) {
	var names []string
	err := s.db.Model(&models.PriceRecord{}).
		Distinct("venue").
		Order("venue").
		Pluck("venue", &names).Error
	return names, err
}

// GetProducts returns the venue's current menu: the latest observed price for
// every product sold there.
func (s *Store) GetProducts(venue string) ([]models.ProductListing, error) {
	var listings []models.ProductListing
	err := s.db.Raw(`
		SELECT product, category, price
		FROM price_records pr
		WHERE venue = ?
		AND observed_at = (
			SELECT MAX(observed_at)
			FROM price_records
			WHERE venue = pr.venue AND product = pr.product
		)
		ORDER BY category, product
	`, venue).Scan(&listings).Error
	return listings, err
}

// LatestPrice returns the most recent observation for one product at one
// venue, matching on the normalized product key.
func (s *Store) LatestPrice(venue, product string) (*models.PriceRecord, error) {
	var record models.PriceRecord
	err := s.db.
		Where("venue = ? AND LOWER(TRIM(product)) = ?", venue, models.NormalizeProductKey(product)).
		Order("observed_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s at %s", ErrNotFound, product, venue)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// DatasetSnapshot returns a fresh copy of the record set, optionally limited
// to the given venues. It implements benchmark.DatasetSource.
func (s *Store) DatasetSnapshot(venues []string) ([]models.PriceRecord, error) {
	query := s.db.Model(&models.PriceRecord{})
	if len(venues) > 0 {
		query = query.Where("venue IN ?", venues)
	}

	var records []models.PriceRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountRecords returns the total number of stored observations.
func (s *Store) CountRecords() (int64, error) {
	var count int64
	err := s.db.Model(&models.PriceRecord{}).Count(&count).Error
	return count, err
}

// Categories returns the distinct product categories, sorted.
func (s *Store) Categories() ([]string, error) {
	var categories []string
	err := s.db.Model(&models.PriceRecord{}).
		Distinct("category").
		Order("category").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}
	// Normalize away stray whitespace from imports.
	for i, c := range categories {
		categories[i] = strings.TrimSpace(c)
	}
	return categories, nil
}
