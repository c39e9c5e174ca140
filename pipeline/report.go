package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"batchpredict/config"
)

const (
	reportTimeLayout = "20060102_150405"
	maxReportSuffix  = 1000
)

// ReportName is the file name of a report written at t.
func ReportName(t time.Time) string {
	return "predictions_" + t.Format(reportTimeLayout) + ".csv"
}

type ReportWriter struct {
	dir        string
	collision  config.CollisionPolicy
	withErrors bool
	now        func() time.Time
	logger     *zap.Logger
}

// NewReportWriter writes reports into dir. With withErrors set the report
// gains an error column for rows that failed under the isolate policy.
func NewReportWriter(dir string, collision config.CollisionPolicy, withErrors bool, now func() time.Time, logger *zap.Logger) *ReportWriter {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportWriter{
		dir:        dir,
		collision:  collision,
		withErrors: withErrors,
		now:        now,
		logger:     logger,
	}
}

// Write stores rows as CSV and returns the report path. The file is written
// in place; a crash mid-write can leave it truncated.
func (w *ReportWriter) Write(rows []ResultRow) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	file, path, err := w.create(w.now())
	if err != nil {
		return "", err
	}

	err = multierr.Append(writeCSV(file, rows, w.withErrors), file.Close())
	if err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}

	w.logger.Info("Saved predictions", zap.String("path", path))
	return path, nil
}

func (w *ReportWriter) create(ts time.Time) (*os.File, string, error) {
	name := ReportName(ts)
	path := filepath.Join(w.dir, name)

	switch w.collision {
	case config.CollisionFail:
		file, err := createExclusive(path)
		if err != nil {
			return nil, "", err
		}
		return file, path, nil
	case config.CollisionUnique:
		stem := name[:len(name)-len(filepath.Ext(name))]
		for n := 0; n <= maxReportSuffix; n++ {
			candidate := path
			if n > 0 {
				candidate = filepath.Join(w.dir, fmt.Sprintf("%s_%d.csv", stem, n))
			}
			file, err := createExclusive(candidate)
			if err == nil {
				return file, candidate, nil
			}
			if !errors.Is(err, fs.ErrExist) {
				return nil, "", err
			}
		}
		return nil, "", fmt.Errorf("no free report name for %s after %d attempts", path, maxReportSuffix)
	default:
		file, err := os.Create(path)
		if err != nil {
			return nil, "", err
		}
		return file, path, nil
	}
}

func createExclusive(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

func writeCSV(out io.Writer, rows []ResultRow, withErrors bool) error {
	writer := csv.NewWriter(out)
	header := []string{"file", "prediction"}
	if withErrors {
		header = append(header, "error")
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{row.File, row.Value()}
		if withErrors {
			message := ""
			if row.Err != nil {
				record[1] = ""
				message = row.Err.Error()
			}
			record = append(record, message)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// FormatPrediction renders a prediction in its shortest exact form, so
// whole-number predictions print without a fraction. NaN renders as an empty
// cell.
func FormatPrediction(value float64) string {
	if math.IsNaN(value) {
		return ""
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
