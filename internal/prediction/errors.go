package prediction

import (
	"errors"
	"fmt"

	"github.com/Brownie44l1/cancer-api/internal/model"
)

var (
	ErrModelNotReady = fmt.Errorf("service not ready: %w", model.ErrNotReady)
	ErrMissingInput  = errors.New("image is required")
)

// Stage is the pipeline step a request failed in.
type Stage string

const (
	StageNormalizing Stage = "normalizing"
	StageInferring   Stage = "inferring"
	StagePersisting  Stage = "persisting"
)

// PredictionError is a failure inside the pipeline after validation. Its
// message is internal; clients get a generic one.
type PredictionError struct {
	Stage Stage
	Err   error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed while %s: %v", e.Stage, e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// PersistenceError is returned by record stores for any durability failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistenceError(op string, err error) error {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
