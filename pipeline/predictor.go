package pipeline

import (
	"fmt"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"batchpredict/config"
	"batchpredict/ml"
)

// ResultRow is the outcome for one input file. Err is only set under the
// isolate error policy, in which case Prediction is meaningless.
type ResultRow struct {
	File       string
	Prediction float64
	// Label is set when the model is a classifier.
	Label string
	Err   error
}

// Value is the report cell for the row's prediction.
func (r ResultRow) Value() string {
	if r.Label != "" {
		return r.Label
	}
	return FormatPrediction(r.Prediction)
}

type Batch struct {
	Rows   []ResultRow
	Failed int
	// Err combines every per-file failure recorded under the isolate policy.
	Err error
}

type BatchOptions struct {
	Policy config.ErrorPolicy
	// Batch groups consecutive records with identical columns into one
	// Predict call instead of calling once per record.
	Batch bool
}

type BatchPredictor struct {
	model   ml.Predictor
	reader  *RecordReader
	options BatchOptions
	classes []string
	logger  *zap.Logger
}

func NewBatchPredictor(model ml.Predictor, reader *RecordReader, options BatchOptions, logger *zap.Logger) *BatchPredictor {
	if options.Policy == "" {
		options.Policy = config.PolicyAbort
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	bp := &BatchPredictor{
		model:   model,
		reader:  reader,
		options: options,
		logger:  logger,
	}
	if labeler, ok := model.(ml.Labeler); ok {
		bp.classes = labeler.ClassLabels()
	}
	return bp
}

// Predict scores files in the given order. Under the abort policy the first
// failing file ends the batch with a *RecordError and no rows.
func (bp *BatchPredictor) Predict(files []string) (*Batch, error) {
	run := &batchRun{
		bp:   bp,
		rows: make([]ResultRow, len(files)),
	}

	for i, path := range files {
		run.rows[i].File = filepath.Base(path)

		record, err := bp.reader.ReadFile(path)
		if err != nil {
			if err := run.fail(i, StageParse, err); err != nil {
				return nil, err
			}
			continue
		}

		if !bp.options.Batch {
			if err := run.predict(record.Frame(), []int{i}); err != nil {
				return nil, err
			}
			continue
		}
		if err := run.add(record, i); err != nil {
			return nil, err
		}
	}
	if err := run.flush(); err != nil {
		return nil, err
	}

	return &Batch{Rows: run.rows, Failed: run.failed, Err: run.errs}, nil
}

type batchRun struct {
	bp     *BatchPredictor
	rows   []ResultRow
	failed int
	errs   error

	frame   *ml.Frame
	pending []int
}

func (r *batchRun) add(record Record, idx int) error {
	if r.frame != nil && !r.frame.HasColumns(record.Keys) {
		if err := r.flush(); err != nil {
			return err
		}
	}
	if r.frame == nil {
		r.frame = ml.NewFrame(record.Keys)
	}
	if err := r.frame.Append(record.Values); err != nil {
		return r.fail(idx, StageShape, err)
	}
	r.pending = append(r.pending, idx)
	return nil
}

func (r *batchRun) flush() error {
	if r.frame == nil {
		return nil
	}
	frame, pending := r.frame, r.pending
	r.frame, r.pending = nil, nil
	return r.predict(frame, pending)
}

// predict scores frame, whose rows belong to the files at indexes. A failing
// multi-row call is retried row by row so the failure lands on its file.
func (r *batchRun) predict(frame *ml.Frame, indexes []int) error {
	predictions, err := r.bp.model.Predict(frame)
	if err == nil && len(predictions) < len(indexes) {
		err = fmt.Errorf("%w: %d predictions for %d rows", ml.ErrShapeMismatch, len(predictions), len(indexes))
	}
	if err == nil {
		for i, idx := range indexes {
			if err := r.record(idx, predictions[i]); err != nil {
				return err
			}
		}
		return nil
	}

	if len(indexes) == 1 {
		return r.fail(indexes[0], StagePredict, err)
	}
	for i, idx := range indexes {
		single := ml.NewFrame(frame.Columns)
		single.Rows = [][]any{frame.Rows[i]}
		if err := r.predict(single, []int{idx}); err != nil {
			return err
		}
	}
	return nil
}

func (r *batchRun) record(idx int, prediction float64) error {
	if len(r.bp.classes) > 0 {
		label, err := ml.ClassLabel(r.bp.classes, prediction)
		if err != nil {
			return r.fail(idx, StagePredict, err)
		}
		r.rows[idx].Label = label
	}
	r.rows[idx].Prediction = prediction
	r.bp.logger.Debug("predicted",
		zap.String("file", r.rows[idx].File),
		zap.Float64("prediction", prediction),
		zap.String("label", r.rows[idx].Label),
	)
	return nil
}

// fail records a per-file failure. It returns the failure itself when the
// batch must stop.
func (r *batchRun) fail(idx int, stage Stage, err error) error {
	recErr := &RecordError{File: r.rows[idx].File, Stage: stage, Err: err}
	if r.bp.options.Policy != config.PolicyIsolate {
		return recErr
	}
	r.rows[idx].Err = recErr
	r.failed++
	r.errs = multierr.Append(r.errs, recErr)
	r.bp.logger.Warn("record failed",
		zap.String("file", recErr.File),
		zap.String("stage", string(stage)),
		zap.Error(err),
	)
	return nil
}
