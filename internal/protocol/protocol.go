// Package protocol defines the JSON-lines messages a training run is
// reported with, shared by the CLI and the HTTP host.
//
// A run produces zero or more progress messages followed by exactly one
// result or error message:
//
//	{"type":"progress","label":"Training Linear Regression","pct":5}
//	{"type":"result","models":[...],"rows":120,"features":4}
//	{"type":"error","code":"INSUFFICIENT_DATA","message":"..."}
package protocol

import (
	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/pkg/log"
	"github.com/plantops/forgeml/trainer"
)

// Message types.
const (
	TypeProgress = "progress"
	TypeResult   = "result"
	TypeError    = "error"
)

// Progress reports one progress event.
type Progress struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Pct   int    `json:"pct"`
}

// Result carries the trained models of a successful run.
type Result struct {
	Type     string                  `json:"type"`
	Models   []*trainer.TrainedModel `json:"models"`
	Rows     int                     `json:"rows"`
	Features int                     `json:"features"`
}

// Error terminates a failed run.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// NewProgress converts a trainer event.
func NewProgress(p trainer.Progress) Progress {
	return Progress{Type: TypeProgress, Label: p.Label, Pct: p.Percent}
}

// NewResult summarizes models. Every model of a run shares its row and
// feature counts.
func NewResult(models []*trainer.TrainedModel) Result {
	r := Result{Type: TypeResult, Models: models}
	if len(models) > 0 {
		r.Rows = models[0].TrainRows + models[0].TestRows
		r.Features = len(models[0].Features)
	}
	return r
}

// NewError classifies err.
func NewError(err error) Error {
	return Error{Type: TypeError, Code: Code(err), Message: err.Error()}
}

// Code maps an error onto a stable machine-readable code.
func Code(err error) string {
	var (
		insufficient *errors.InsufficientDataError
		validation   *errors.ValidationError
		dimension    *errors.DimensionError
		notFitted    *errors.NotFittedError
	)
	switch {
	case errors.As(err, &insufficient):
		return log.ErrorInsufficientData
	case errors.Is(err, errors.ErrInvalidArtifact):
		return log.ErrorInvalidArtifact
	case errors.Is(err, errors.ErrFeatureMismatch), errors.As(err, &dimension):
		return log.ErrorDimensionMismatch
	case errors.As(err, &validation):
		return log.ErrorInvalidInput
	case errors.As(err, &notFitted):
		return log.ErrorNotFitted
	default:
		return ""
	}
}

// Relay forwards the job's progress through emit and returns its result.
// If emit fails the job is abandoned and the emit error returned; training
// itself still runs to completion in the background.
func Relay(job *trainer.Job, emit func(v any) error) ([]*trainer.TrainedModel, error) {
	for p := range job.Events() {
		if err := emit(NewProgress(p)); err != nil {
			job.Abandon()
			return nil, errors.Wrap(err, "relay progress")
		}
	}
	return job.Wait()
}
