package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// DataPreprocessor turns frame rows into the numeric vectors an estimator
// was trained on: string categories are encoded, and features with recorded
// [min, max] stats are min-max scaled.
type DataPreprocessor struct {
	Encoders     map[string]map[string]float64 `json:"encoders,omitempty"`
	FeatureStats map[string][2]float64         `json:"feature_stats,omitempty"`

	binder *columnBinder
}

func (p *DataPreprocessor) bind(features []string, cacheSize int) error {
	binder, err := newColumnBinder(features, cacheSize)
	if err != nil {
		return err
	}
	p.binder = binder
	return nil
}

func (p *DataPreprocessor) Transform(frame *Frame) ([][]float64, error) {
	if p.binder == nil {
		return nil, ErrNotTrained
	}
	if frame == nil {
		return nil, errors.New("frame is nil")
	}
	positions, err := p.binder.bind(frame.Columns)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float64, len(frame.Rows))
	for r, row := range frame.Rows {
		if len(row) != len(frame.Columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, frame has %d columns", ErrShapeMismatch, r, len(row), len(frame.Columns))
		}
		vector := make([]float64, len(positions))
		for i, pos := range positions {
			feature := p.binder.features[i]
			value, err := p.encode(feature, row[pos])
			if err != nil {
				return nil, err
			}
			if stats, ok := p.FeatureStats[feature]; ok {
				value = NormalizeFeature(value, stats[0], stats[1])
			}
			vector[i] = value
		}
		vectors[r] = vector
	}
	return vectors, nil
}

func (p *DataPreprocessor) encode(feature string, cell any) (float64, error) {
	switch v := cell.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%s", ErrInvalidValue, feature, v)
		}
		return f, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		if encoder, ok := p.Encoders[feature]; ok {
			code, ok := encoder[v]
			if !ok {
				return 0, fmt.Errorf("%w: %s has unknown category %q", ErrInvalidValue, feature, v)
			}
			return code, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, feature, v)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("%w: %s is null", ErrInvalidValue, feature)
	default:
		return 0, fmt.Errorf("%w: %s has type %T", ErrInvalidValue, feature, cell)
	}
}

func NormalizeFeature(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	return (value - min) / (max - min)
}
