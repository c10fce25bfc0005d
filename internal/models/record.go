package models

import (
	"strings"
	"time"
)

// PriceRecord is one observed product listing at a venue. Records arrive
// pre-cleaned from the ingestion side; Price is always positive by the time
// a record is stored.
type PriceRecord struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	Venue      string    `json:"venue" gorm:"uniqueIndex:idx_records_observation,priority:1"`
	Product    string    `json:"product" gorm:"uniqueIndex:idx_records_observation,priority:2"`
	Category   string    `json:"category"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at" gorm:"uniqueIndex:idx_records_observation,priority:3"`
	CreatedAt  time.Time `json:"created_at"`
}

// NormalizedKey returns the product key used for cross-venue matching.
func (r PriceRecord) NormalizedKey() string {
	return NormalizeProductKey(r.Product)
}

// NormalizeProductKey lowercases and trims a product name so that small
// labelling differences between venues collapse onto one key.
func NormalizeProductKey(product string) string {
	return strings.ToLower(strings.TrimSpace(product))
}

// Venue holds the venue metadata we keep alongside price records.
// Coordinates are optional; they only matter for market-area scoping.
type Venue struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductListing is the venue-menu view served by the products endpoint.
type ProductListing struct {
	Product  string  `json:"product"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}
