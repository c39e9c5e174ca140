package pipeline

import (
	"errors"
	"io/fs"
	"math"
	"path/filepath"
	"testing"
	"time"

	"batchpredict/config"
)

var reportClock = func() time.Time {
	return time.Date(2026, 10, 16, 9, 5, 7, 0, time.Local)
}

func TestReportName(t *testing.T) {
	if got := ReportName(reportClock()); got != "predictions_20261016_090507.csv" {
		t.Fatalf("unexpected report name: %s", got)
	}
}

func TestReportWriterWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data", "predictions")
	writer := NewReportWriter(dir, config.CollisionOverwrite, false, reportClock, nil)

	path, err := writer.Write([]ResultRow{
		{File: "r1.json", Prediction: 42},
		{File: "r2, quoted.json", Prediction: 0.125},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(dir, "predictions_20261016_090507.csv") {
		t.Fatalf("unexpected path: %s", path)
	}
	want := "file,prediction\nr1.json,42\n\"r2, quoted.json\",0.125\n"
	if got := readFile(t, path); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestReportWriterEmptyBatch(t *testing.T) {
	writer := NewReportWriter(t.TempDir(), config.CollisionOverwrite, false, reportClock, nil)
	path, err := writer.Write(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := readFile(t, path); got != "file,prediction\n" {
		t.Fatalf("expected header only, got %q", got)
	}
}

func TestReportWriterErrorColumn(t *testing.T) {
	writer := NewReportWriter(t.TempDir(), config.CollisionOverwrite, true, reportClock, nil)
	path, err := writer.Write([]ResultRow{
		{File: "a.json", Prediction: 1},
		{File: "b.json", Err: &RecordError{File: "b.json", Stage: StageParse, Err: ErrMalformedRecord}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "file,prediction,error\na.json,1,\nb.json,,PARSE b.json: malformed record\n"
	if got := readFile(t, path); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestReportWriterCollisions(t *testing.T) {
	rows := []ResultRow{{File: "a.json", Prediction: 1}}
	second := []ResultRow{{File: "a.json", Prediction: 2}}

	t.Run("overwrite", func(t *testing.T) {
		writer := NewReportWriter(t.TempDir(), config.CollisionOverwrite, false, reportClock, nil)
		first, err := writer.Write(rows)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		again, err := writer.Write(second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first != again {
			t.Fatalf("expected same path, got %s and %s", first, again)
		}
		if got := readFile(t, again); got != "file,prediction\na.json,2\n" {
			t.Fatalf("expected overwritten report, got %q", got)
		}
	})

	t.Run("unique", func(t *testing.T) {
		dir := t.TempDir()
		writer := NewReportWriter(dir, config.CollisionUnique, false, reportClock, nil)
		paths := make([]string, 3)
		for i := range paths {
			path, err := writer.Write(rows)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			paths[i] = filepath.Base(path)
		}
		want := []string{
			"predictions_20261016_090507.csv",
			"predictions_20261016_090507_1.csv",
			"predictions_20261016_090507_2.csv",
		}
		for i := range want {
			if paths[i] != want[i] {
				t.Fatalf("expected %v, got %v", want, paths)
			}
		}
	})

	t.Run("fail", func(t *testing.T) {
		writer := NewReportWriter(t.TempDir(), config.CollisionFail, false, reportClock, nil)
		if _, err := writer.Write(rows); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := writer.Write(second); !errors.Is(err, fs.ErrExist) {
			t.Fatalf("expected fs.ErrExist, got %v", err)
		}
	})
}

func TestReportWriterLabelsAndNaN(t *testing.T) {
	writer := NewReportWriter(t.TempDir(), config.CollisionOverwrite, false, reportClock, nil)
	path, err := writer.Write([]ResultRow{
		{File: "a.json", Prediction: 1, Label: "dog"},
		{File: "b.json", Prediction: math.NaN()},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "file,prediction\na.json,dog\nb.json,\n"
	if got := readFile(t, path); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestFormatPrediction(t *testing.T) {
	tests := map[float64]string{
		42:     "42",
		-1.5:   "-1.5",
		0.1:    "0.1",
		1e21:   "1000000000000000000000",
		0.0001: "0.0001",
	}
	for value, want := range tests {
		if got := FormatPrediction(value); got != want {
			t.Errorf("FormatPrediction(%v) = %s, want %s", value, got, want)
		}
	}
	if got := FormatPrediction(math.NaN()); got != "" {
		t.Errorf("FormatPrediction(NaN) = %q, want empty", got)
	}
}
