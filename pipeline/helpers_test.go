package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"batchpredict/ml"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func setModTime(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func saveConstantModel(t *testing.T, dir, name string, value float64, mtime time.Time) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	model, err := ml.NewModel([]string{"a"}, nil, &ml.Constant{Value: value})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := ml.SaveModel(path, model); err != nil {
		t.Fatalf("save model: %v", err)
	}
	setModTime(t, path, mtime)
	return path
}

// fakeModel doubles column "a" and fails on rows where "a" is negative.
type fakeModel struct {
	calls int
	rows  []int
}

func (f *fakeModel) Predict(frame *ml.Frame) ([]float64, error) {
	f.calls++
	f.rows = append(f.rows, frame.Len())
	col := -1
	for i, name := range frame.Columns {
		if name == "a" {
			col = i
		}
	}
	if col < 0 {
		return nil, ml.ErrMissingColumn
	}
	out := make([]float64, frame.Len())
	for i, row := range frame.Rows {
		v, ok := row[col].(float64)
		if !ok || v < 0 {
			return nil, ml.ErrInvalidValue
		}
		out[i] = v * 2
	}
	return out, nil
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(payload)
}
