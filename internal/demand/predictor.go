package demand

import (
	"errors"

	"pourprice/server/internal/models"
)

// ErrModelNotTrained is returned when a prediction is requested before a
// model artifact has been loaded.
var ErrModelNotTrained = errors.New("demand model not trained")

// Predictor maps a candidate price for a product, under a demand context, to
// the expected units sold. Implementations never return negative values.
type Predictor interface {
	Predict(price float64, id models.ProductIdentity, ctx models.DemandContext) (float64, error)
}

// ConstantStub is a Predictor that always returns the same demand. It stands
// in for a trained model in tests and offline runs.
type ConstantStub struct {
	Demand float64
}

func (s ConstantStub) Predict(price float64, id models.ProductIdentity, ctx models.DemandContext) (float64, error) {
	if s.Demand < 0 {
		return 0, nil
	}
	return s.Demand, nil
}
