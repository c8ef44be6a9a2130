package summarizer

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindInsufficientData Kind = "insufficient_data"
	KindEmptyText        Kind = "empty_text"
	KindConfiguration    Kind = "configuration_error"
	KindMapStage         Kind = "map_stage_error"
	KindReduceStage      Kind = "reduce_stage_error"
	KindCancelled        Kind = "cancelled"
)

// ErrEmptySynthesis is returned when the reduce call yields blank output.
var ErrEmptySynthesis = errors.New("synthesis returned empty output")

// Failure is the terminal error of a pipeline run.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func fail(kind Kind, err error, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the failure kind from err, or "" if err is not a Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}
