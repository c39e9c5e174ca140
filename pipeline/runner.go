package pipeline

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"batchpredict/config"
	"batchpredict/ml"
)

// Stage names a step of a prediction run. Runs move through the stages in
// declaration order and stop at the first failure.
type Stage string

const (
	StageSelectArtifact Stage = "SELECT_ARTIFACT"
	StageLoadModel      Stage = "LOAD_MODEL"
	StageListInputs     Stage = "LIST_INPUTS"
	StageParse          Stage = "PARSE"
	StageShape          Stage = "SHAPE"
	StagePredict        Stage = "PREDICT"
	StageWriteReport    Stage = "WRITE_REPORT"
	StageRecordHistory  Stage = "RECORD_HISTORY"
)

type Summary struct {
	ModelPath  string
	ReportPath string
	Rows       []ResultRow
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// HistoryRecorder persists the outcome of a finished run.
type HistoryRecorder interface {
	RecordRun(summary *Summary) error
}

type Runner struct {
	cfg     config.Config
	logger  *zap.Logger
	reader  *RecordReader
	history HistoryRecorder
	now     func() time.Time
}

type RunnerOption func(*Runner)

func WithHistory(history HistoryRecorder) RunnerOption {
	return func(r *Runner) {
		r.history = history
	}
}

// WithClock replaces the wall clock used for report names and run times.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

func NewRunner(cfg config.Config, logger *zap.Logger, opts ...RunnerOption) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reader, err := NewRecordReader(cfg.Input.Encoding)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		cfg:    cfg,
		logger: logger,
		reader: reader,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes one prediction run. Nothing is retried; any error ends the
// run wrapped in a *StageError.
func (r *Runner) Run() (*Summary, error) {
	summary := &Summary{StartedAt: r.now()}

	r.enter(StageSelectArtifact)
	modelPath, err := LatestArtifact(r.cfg.ModelsDir, r.cfg.ModelExt)
	if err != nil {
		return nil, r.fail(StageSelectArtifact, err)
	}
	summary.ModelPath = modelPath

	r.enter(StageLoadModel)
	model, err := ml.LoadModel(modelPath, ml.WithBindingCacheSize(r.cfg.Cache.ColumnBindings))
	if err != nil {
		return nil, r.fail(StageLoadModel, err)
	}
	r.logger.Info("Loaded model", zap.String("path", modelPath))
	r.logger.Debug("model details",
		zap.String("kind", model.Kind),
		zap.Strings("features", model.Features),
	)

	r.enter(StageListInputs)
	files, err := ListInputs(r.cfg.TestDir, r.cfg.InputExt)
	if err != nil {
		return nil, r.fail(StageListInputs, err)
	}

	r.enter(StagePredict)
	predictor := NewBatchPredictor(model, r.reader, BatchOptions{
		Policy: r.cfg.Inference.OnError,
		Batch:  r.cfg.Inference.Batch,
	}, r.logger)
	batch, err := predictor.Predict(files)
	if err != nil {
		stage := StagePredict
		var recErr *RecordError
		if errors.As(err, &recErr) {
			stage = recErr.Stage
		}
		return nil, r.fail(stage, err)
	}
	if batch.Err != nil {
		r.logger.Warn("some records failed",
			zap.Int("failed", batch.Failed),
			zap.Int("total", len(batch.Rows)),
			zap.Error(batch.Err),
		)
	}
	summary.Rows = batch.Rows
	summary.Failed = batch.Failed

	r.enter(StageWriteReport)
	writer := NewReportWriter(
		r.cfg.PredictionsDir,
		r.cfg.Report.OnCollision,
		r.cfg.Inference.OnError == config.PolicyIsolate,
		r.now,
		r.logger,
	)
	reportPath, err := writer.Write(batch.Rows)
	if err != nil {
		return nil, r.fail(StageWriteReport, err)
	}
	summary.ReportPath = reportPath
	summary.FinishedAt = r.now()

	if r.history != nil {
		r.enter(StageRecordHistory)
		if err := r.history.RecordRun(summary); err != nil {
			return nil, r.fail(StageRecordHistory, err)
		}
	}

	r.logger.Debug("run done", zap.Int("rows", len(summary.Rows)))
	return summary, nil
}

func (r *Runner) enter(stage Stage) {
	r.logger.Debug("entering stage", zap.String("stage", string(stage)))
}

func (r *Runner) fail(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
