package ml

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const (
	KindDecisionTree = "decision_tree"
	KindLinear       = "linear"
	KindConstant     = "constant"
)

// Artifact is the on-disk envelope of a trained model.
type Artifact struct {
	Kind         string            `json:"kind"`
	Features     []string          `json:"features"`
	Classes      []string          `json:"classes,omitempty"`
	Preprocessor *DataPreprocessor `json:"preprocessor,omitempty"`
	Model        json.RawMessage   `json:"model"`
}

// LoadModel reads the artifact at path. Decode failures are returned as the
// decoder reported them.
func LoadModel(path string, opts ...Option) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return DecodeModel(file, opts...)
}

func DecodeModel(r io.Reader, opts ...Option) (*Model, error) {
	var artifact Artifact
	if err := json.NewDecoder(r).Decode(&artifact); err != nil {
		return nil, err
	}
	estimator, err := newEstimator(artifact.Kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(artifact.Model, estimator); err != nil {
		return nil, err
	}
	opts = append([]Option{WithClasses(artifact.Classes)}, opts...)
	return NewModel(artifact.Features, artifact.Preprocessor, estimator, opts...)
}

func SaveModel(path string, model *Model) error {
	payload, err := json.Marshal(model.Estimator)
	if err != nil {
		return err
	}
	artifact := Artifact{
		Kind:         model.Kind,
		Features:     model.Features,
		Classes:      model.Classes,
		Preprocessor: model.Preprocessor,
		Model:        payload,
	}
	encoded, err := json.Marshal(artifact)
	if err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0o600)
}

func newEstimator(kind string) (Estimator, error) {
	switch kind {
	case KindDecisionTree:
		return &DecisionTree{}, nil
	case KindLinear:
		return &LinearRegression{}, nil
	case KindConstant:
		return &Constant{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, kind)
	}
}

func kindOf(estimator Estimator) (string, error) {
	switch estimator.(type) {
	case *DecisionTree:
		return KindDecisionTree, nil
	case *LinearRegression:
		return KindLinear, nil
	case *Constant:
		return KindConstant, nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedModel, estimator)
	}
}
