package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrNoArtifact      = errors.New("no model artifact found")
	ErrNoInput         = errors.New("no test input found")
	ErrMalformedRecord = errors.New("malformed record")
)

// NotFoundError reports a directory holding no file of the expected kind.
// It matches both its Kind sentinel and fs.ErrNotExist.
type NotFoundError struct {
	Kind    error
	Dir     string
	Pattern string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: no %s files in %s", e.Kind, e.Pattern, e.Dir)
}

func (e *NotFoundError) Unwrap() []error {
	return []error{e.Kind, fs.ErrNotExist}
}

// RecordError attributes a parse or prediction failure to one input file.
type RecordError struct {
	File  string
	Stage Stage
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.File, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// StageError marks the pipeline stage a run failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
