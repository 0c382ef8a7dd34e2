package commands

import (
	"errors"
	"fmt"
)

// Stage names the step of an audit run that failed.
type Stage string

// Audit stages.
const (
	StageConfig   Stage = "config"
	StageRead     Stage = "read"
	StageEvaluate Stage = "evaluate"
	StageWrite    Stage = "write"
	StageHistory  Stage = "history"
)

// StageError wraps an error with the stage it occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// WrapStage attaches stage to err unless err already carries a stage.
func WrapStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage recorded in err, or "" if there is none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
