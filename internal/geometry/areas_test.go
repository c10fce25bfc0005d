package geometry

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pourprice/server/internal/models"
)

const testAreasGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"properties": {"name": "Downtown"},
			"geometry": {
				"type": "Polygon",
				"coordinates": [[[0, 0], [4, 0], [4, 4], [0, 4], [0, 0]]]
			}
		},
		{
			"type": "Feature",
			"properties": {"name": "Harbor"},
			"geometry": {
				"type": "Polygon",
				"coordinates": [[[10, 10], [14, 10], [14, 14], [10, 14], [10, 10]]]
			}
		},
		{
			"type": "Feature",
			"properties": {},
			"geometry": {
				"type": "Polygon",
				"coordinates": [[[20, 20], [24, 20], [24, 24], [20, 24], [20, 20]]]
			}
		},
		{
			"type": "Feature",
			"properties": {"name": "Pier"},
			"geometry": {"type": "Point", "coordinates": [1, 1]}
		}
	]
}`

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func loadTestAreas(t *testing.T) *AreaIndex {
	t.Helper()
	path := filepath.Join(t.TempDir(), "areas.geojson")
	require.NoError(t, os.WriteFile(path, []byte(testAreasGeoJSON), 0644))
	idx, err := LoadAreas(path, quietLogger())
	require.NoError(t, err)
	return idx
}

func ptrf(v float64) *float64 {
	return &v
}

func TestLoadAreas_SkipsUnusableFeatures(t *testing.T) {
	idx := loadTestAreas(t)

	// The unnamed polygon and the point geometry are dropped.
	assert.Equal(t, []string{"Downtown", "Harbor"}, idx.Names())
}

func TestAreaFor(t *testing.T) {
	idx := loadTestAreas(t)

	name, ok := idx.AreaFor(2, 2)
	require.True(t, ok)
	assert.Equal(t, "Downtown", name)

	name, ok = idx.AreaFor(12, 13)
	require.True(t, ok)
	assert.Equal(t, "Harbor", name)

	_, ok = idx.AreaFor(7, 7)
	assert.False(t, ok)
}

func TestVenuesIn(t *testing.T) {
	idx := loadTestAreas(t)

	venues := []models.Venue{
		{Name: "Bar A", Latitude: ptrf(1), Longitude: ptrf(1)},
		{Name: "Bar B", Latitude: ptrf(3), Longitude: ptrf(3)},
		{Name: "Harbor Club", Latitude: ptrf(11), Longitude: ptrf(11)},
		{Name: "Nowhere", Latitude: ptrf(50), Longitude: ptrf(50)},
		{Name: "Unlocated"},
	}

	assert.Equal(t, []string{"Bar A", "Bar B"}, idx.VenuesIn("Downtown", venues))
	assert.Equal(t, []string{"Harbor Club"}, idx.VenuesIn("Harbor", venues))
	assert.Empty(t, idx.VenuesIn("Midtown", venues))
}

func TestAreaFromVenues(t *testing.T) {
	venues := []models.Venue{
		{Name: "A", Latitude: ptrf(0), Longitude: ptrf(0)},
		{Name: "B", Latitude: ptrf(0), Longitude: ptrf(4)},
		{Name: "C", Latitude: ptrf(4), Longitude: ptrf(4)},
		{Name: "D", Latitude: ptrf(4), Longitude: ptrf(0)},
		{Name: "Inside", Latitude: ptrf(2), Longitude: ptrf(2)},
		{Name: "Unlocated"},
	}

	area, err := AreaFromVenues("Derived", venues)
	require.NoError(t, err)

	assert.True(t, area.Contains(2, 2))
	assert.False(t, area.Contains(5, 5))
}

func TestAreaFromVenues_TooFewPoints(t *testing.T) {
	venues := []models.Venue{
		{Name: "A", Latitude: ptrf(0), Longitude: ptrf(0)},
		{Name: "B", Latitude: ptrf(1), Longitude: ptrf(1)},
	}

	_, err := AreaFromVenues("Tiny", venues)
	assert.ErrorContains(t, err, "at least 3")
}

func TestAreaFromVenues_CollinearVenues(t *testing.T) {
	venues := []models.Venue{
		{Name: "A", Latitude: ptrf(0), Longitude: ptrf(0)},
		{Name: "B", Latitude: ptrf(1), Longitude: ptrf(1)},
		{Name: "C", Latitude: ptrf(2), Longitude: ptrf(2)},
	}

	_, err := AreaFromVenues("Line", venues)
	assert.ErrorContains(t, err, "collinear")
}

func TestSaveRoundTrip(t *testing.T) {
	idx := loadTestAreas(t)
	path := filepath.Join(t.TempDir(), "saved.geojson")

	require.NoError(t, idx.Save(path))

	reloaded, err := LoadAreas(path, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, idx.Names(), reloaded.Names())

	name, ok := reloaded.AreaFor(2, 2)
	require.True(t, ok)
	assert.Equal(t, "Downtown", name)
}
