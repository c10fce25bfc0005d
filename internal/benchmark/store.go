package benchmark

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"pourprice/server/internal/models"
)

// ErrNotComputed is returned when a snapshot is requested before the first
// successful recompute.
var ErrNotComputed = errors.New("benchmarks have not been computed yet")

// DatasetSource supplies the canonical dataset snapshot benchmarks are
// computed from. The returned slice must be a fresh copy the store may read
// freely.
type DatasetSource interface {
	DatasetSnapshot(venues []string) ([]models.PriceRecord, error)
}

// Store holds the current benchmark snapshot. Readers get the snapshot via an
// atomic pointer and may hold it for the duration of a request; Recompute is
// serialized and swaps in a freshly built snapshot, so readers never observe
// a partial update.
type Store struct {
	computer *Computer
	source   DatasetSource
	logger   *logrus.Logger

	current     atomic.Pointer[models.Benchmarks]
	recomputeMu sync.Mutex

	// venueScope restricts which venues contribute records; empty means all.
	venueScope []string
}

func NewStore(computer *Computer, source DatasetSource, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{
		computer: computer,
		source:   source,
		logger:   logger,
	}
}

// SetVenueScope restricts future recomputes to the given venues, e.g. the
// members of a market area. Call before Recompute.
func (s *Store) SetVenueScope(venues []string) {
	s.recomputeMu.Lock()
	defer s.recomputeMu.Unlock()
	s.venueScope = append([]string(nil), venues...)
}

// Recompute rebuilds the benchmark snapshot from the dataset source and swaps
// it in. Concurrent calls are serialized; concurrent readers keep seeing the
// previous snapshot until the swap.
func (s *Store) Recompute() error {
	s.recomputeMu.Lock()
	defer s.recomputeMu.Unlock()

	records, err := s.source.DatasetSnapshot(s.venueScope)
	if err != nil {
		return err
	}

	b, err := s.computer.Compute(records)
	if err != nil {
		return err
	}

	s.current.Store(b)
	return nil
}

// Snapshot returns the current read-only benchmark snapshot.
func (s *Store) Snapshot() (*models.Benchmarks, error) {
	b := s.current.Load()
	if b == nil {
		return nil, ErrNotComputed
	}
	return b, nil
}

// Ready reports whether a snapshot is available.
func (s *Store) Ready() bool {
	return s.current.Load() != nil
}
