package ml

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedModel = errors.New("unsupported model type")
	ErrNotTrained       = errors.New("model not trained")
	ErrMissingColumn    = errors.New("missing expected column")
	ErrInvalidValue     = errors.New("invalid feature value")
	ErrShapeMismatch    = errors.New("shape mismatch")
)

// Predictor scores every row of a frame and returns one prediction per row,
// in row order.
type Predictor interface {
	Predict(frame *Frame) ([]float64, error)
}

// Labeler is implemented by predictors whose outputs index a list of class
// labels. An empty list means the outputs are plain numbers.
type Labeler interface {
	ClassLabels() []string
}

// Estimator scores a single numeric feature vector.
type Estimator interface {
	PredictVector(features []float64) (float64, error)
}

// Model ties an estimator to the named features it was trained on. Frame
// columns are matched to features by name, so column order in the input does
// not matter.
type Model struct {
	Kind         string
	Features     []string
	Classes      []string
	Preprocessor *DataPreprocessor
	Estimator    Estimator
}

func NewModel(features []string, preprocessor *DataPreprocessor, estimator Estimator, opts ...Option) (*Model, error) {
	kind, err := kindOf(estimator)
	if err != nil {
		return nil, err
	}
	if preprocessor == nil {
		preprocessor = &DataPreprocessor{}
	}
	o := buildOptions(opts)
	if err := preprocessor.bind(features, o.bindingCacheSize); err != nil {
		return nil, err
	}
	return &Model{
		Kind:         kind,
		Features:     append([]string(nil), features...),
		Classes:      o.classes,
		Preprocessor: preprocessor,
		Estimator:    estimator,
	}, nil
}

func (m *Model) Predict(frame *Frame) ([]float64, error) {
	if m.Estimator == nil || m.Preprocessor == nil {
		return nil, ErrNotTrained
	}
	vectors, err := m.Preprocessor.Transform(frame)
	if err != nil {
		return nil, err
	}
	predictions := make([]float64, len(vectors))
	for i, vector := range vectors {
		value, err := m.Estimator.PredictVector(vector)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		predictions[i] = value
	}
	return predictions, nil
}

func (m *Model) ClassLabels() []string {
	return m.Classes
}

// ClassLabel returns the label a classifier output stands for. Outputs must
// be whole-number indexes into classes.
func ClassLabel(classes []string, prediction float64) (string, error) {
	idx := int(prediction)
	if float64(idx) != prediction || idx < 0 || idx >= len(classes) {
		return "", fmt.Errorf("%w: class index %v outside %d classes", ErrInvalidValue, prediction, len(classes))
	}
	return classes[idx], nil
}

const DefaultBindingCacheSize = 64

type Option func(*options)

type options struct {
	bindingCacheSize int
	classes          []string
}

// WithBindingCacheSize bounds how many distinct column layouts a model
// remembers the feature binding for.
func WithBindingCacheSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.bindingCacheSize = size
		}
	}
}

// WithClasses turns the model into a classifier whose outputs index classes.
func WithClasses(classes []string) Option {
	return func(o *options) {
		o.classes = append([]string(nil), classes...)
	}
}

func buildOptions(opts []Option) options {
	o := options{bindingCacheSize: DefaultBindingCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
