package ports

import "godecode/domain/decoding"

// Estimator is a fit/predict model trained on one time bin's feature
// vectors. Predict returns one row per sample; the row width is 1 for scalar
// targets and 2 (angle, radius) for circular targets.
type Estimator interface {
	// Fit trains on rows of features against the label vector.
	Fit(x [][]float64, y []float64) error
	// Predict returns predictions for rows of features.
	Predict(x [][]float64) [][]float64
	// OutputDim is the prediction row width.
	OutputDim() int
	// State exports the fitted parameters for persistence.
	State() decoding.EstimatorState
}
