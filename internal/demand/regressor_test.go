package demand

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pourprice/server/internal/models"
)

func testIdentity() models.ProductIdentity {
	return models.ProductIdentity{Venue: "NYX Rooftop Lounge", Product: "Grey Goose", Category: "Whiskey & Bourbon"}
}

func testContext() models.DemandContext {
	return models.DemandContext{
		DayOfWeek:      4,
		Hour:           22,
		IsWeekend:      true,
		EventType:      "DJ",
		InventoryLevel: 0.5,
		Month:          7,
	}
}

func TestRegressor_NotTrained(t *testing.T) {
	r := NewRegressor(logrus.New())

	_, err := r.Predict(300, testIdentity(), testContext())
	assert.ErrorIs(t, err, ErrModelNotTrained)
	assert.False(t, r.Trained())

	err = r.Save(filepath.Join(t.TempDir(), "model.json"))
	assert.ErrorIs(t, err, ErrModelNotTrained)
}

func TestRegressor_Predict(t *testing.T) {
	r := NewRegressor(logrus.New())
	r.SetArtifact(&Artifact{
		Intercept: 10,
		Weights: map[string]float64{
			"price":                    -0.02,
			"is_weekend":               3,
			"venue_NYX_Rooftop_Lounge": 2,
			"type_Whiskey__Bourbon":    1,
			"event_type_DJ":            4,
			"venue_Somewhere_Else":     100, // inactive one-hot column
		},
	})

	got, err := r.Predict(300, testIdentity(), testContext())
	require.NoError(t, err)
	// 10 - 0.02*300 + 3 + 2 + 1 + 4 = 14
	assert.InDelta(t, 14.0, got, 1e-9)
}

func TestRegressor_NegativeOutputClampedToZero(t *testing.T) {
	r := NewRegressor(logrus.New())
	r.SetArtifact(&Artifact{
		Intercept: 1,
		Weights:   map[string]float64{"price": -1},
	})

	got, err := r.Predict(500, testIdentity(), testContext())
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestRegressor_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	r := NewRegressor(logrus.New())
	r.SetArtifact(&Artifact{
		Intercept: 2.5,
		Weights:   map[string]float64{"price": -0.01, "hour": 0.3},
	})
	require.NoError(t, r.Save(path))

	loaded := NewRegressor(logrus.New())
	require.NoError(t, loaded.Load(path))
	assert.True(t, loaded.Trained())

	want, err := r.Predict(250, testIdentity(), testContext())
	require.NoError(t, err)
	got, err := loaded.Predict(250, testIdentity(), testContext())
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-9)
}

func TestRegressor_LoadRejectsEmptyArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"intercept": 1, "weights": {}}`), 0644))

	r := NewRegressor(logrus.New())
	assert.Error(t, r.Load(path))
}

func TestCleanFeatureName(t *testing.T) {
	assert.Equal(t, "Whiskey__Bourbon", CleanFeatureName("Whiskey & Bourbon"))
	assert.Equal(t, "NYX_Rooftop_Lounge", CleanFeatureName("NYX Rooftop Lounge"))
	assert.Equal(t, "OBriens", CleanFeatureName("O'Briens"))
	assert.Equal(t, "pop_up", CleanFeatureName("pop-up"))
	assert.Equal(t, "A_", CleanFeatureName("A+"))
}

func TestConstantStub(t *testing.T) {
	got, err := ConstantStub{Demand: 12}.Predict(999, testIdentity(), testContext())
	require.NoError(t, err)
	assert.Equal(t, 12.0, got)

	got, err = ConstantStub{Demand: -3}.Predict(1, testIdentity(), testContext())
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}
