package demand

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"pourprice/server/internal/models"
)

// Artifact is the persisted form of a trained demand regression: an intercept
// plus a weight per feature name. Training happens elsewhere; this package
// only evaluates the artifact.
type Artifact struct {
	FeatureNames []string           `json:"feature_names"`
	Weights      map[string]float64 `json:"weights"`
	Intercept    float64            `json:"intercept"`
}

// Regressor evaluates a loaded demand model artifact. The feature encoding
// matches the training side: numeric context features plus one-hot venue,
// category and event type columns with cleaned names.
type Regressor struct {
	artifact *Artifact
	logger   *logrus.Logger
}

func NewRegressor(logger *logrus.Logger) *Regressor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Regressor{logger: logger}
}

// Load reads a model artifact from disk.
func (r *Regressor) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return fmt.Errorf("failed to parse model artifact: %w", err)
	}
	if len(artifact.Weights) == 0 {
		return fmt.Errorf("model artifact %s has no weights", path)
	}

	r.artifact = &artifact
	r.logger.WithFields(logrus.Fields{
		"path":     path,
		"features": len(artifact.Weights),
	}).Info("Loaded demand model artifact")
	return nil
}

// Save writes the loaded artifact back to disk.
func (r *Regressor) Save(path string) error {
	if r.artifact == nil {
		return ErrModelNotTrained
	}
	data, err := json.MarshalIndent(r.artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model artifact: %w", err)
	}
	return nil
}

// SetArtifact installs an artifact directly, bypassing disk.
func (r *Regressor) SetArtifact(artifact *Artifact) {
	r.artifact = artifact
}

// Trained reports whether an artifact is loaded.
func (r *Regressor) Trained() bool {
	return r.artifact != nil
}

// Predict evaluates the regression at a price; negative model output is
// clamped to zero.
func (r *Regressor) Predict(price float64, id models.ProductIdentity, ctx models.DemandContext) (float64, error) {
	if r.artifact == nil {
		return 0, ErrModelNotTrained
	}

	features := r.featureVector(price, id, ctx)

	sum := r.artifact.Intercept
	for name, weight := range r.artifact.Weights {
		sum += weight * features[name]
	}
	if sum < 0 {
		return 0, nil
	}
	return sum, nil
}

func (r *Regressor) featureVector(price float64, id models.ProductIdentity, ctx models.DemandContext) map[string]float64 {
	features := map[string]float64{
		"price":           price,
		"day_of_week":     float64(ctx.DayOfWeek),
		"hour":            float64(ctx.Hour),
		"is_weekend":      boolFeature(ctx.IsWeekend),
		"is_holiday":      boolFeature(ctx.IsHoliday),
		"inventory_level": ctx.InventoryLevel,
		"month":           float64(ctx.Month),
	}
	features["venue_"+CleanFeatureName(id.Venue)] = 1
	features["type_"+CleanFeatureName(id.Category)] = 1
	features["event_type_"+CleanFeatureName(ctx.EventType)] = 1
	return features
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// CleanFeatureName normalizes a categorical value into the column name used
// at training time: spaces, hyphens and plus signs become underscores,
// ampersands and apostrophes are dropped.
func CleanFeatureName(value string) string {
	replacer := strings.NewReplacer(
		" ", "_",
		"&", "",
		"'", "",
		"-", "_",
		"+", "_",
	)
	return replacer.Replace(value)
}
