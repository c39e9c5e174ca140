package ml

import (
	"fmt"
	"math"
)

// LinearRegression computes intercept + w·x, optionally passed through the
// logistic function to yield a probability.
type LinearRegression struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
	Logistic  bool      `json:"logistic,omitempty"`
}

func (lr *LinearRegression) PredictVector(features []float64) (float64, error) {
	if len(lr.Weights) == 0 {
		return 0, ErrNotTrained
	}
	if len(features) != len(lr.Weights) {
		return 0, fmt.Errorf("%w: %d features for %d weights", ErrShapeMismatch, len(features), len(lr.Weights))
	}
	sum := lr.Intercept
	for i, w := range lr.Weights {
		sum += w * features[i]
	}
	if lr.Logistic {
		return 1 / (1 + math.Exp(-sum)), nil
	}
	return sum, nil
}

// Constant predicts the same value for every row. Trainers emit it as a
// baseline when there is nothing to learn from.
type Constant struct {
	Value float64 `json:"value"`
}

func (c *Constant) PredictVector([]float64) (float64, error) {
	return c.Value, nil
}
