package analysis

import "errors"

var (
	// ErrEmptyDocument indicates the PDF produced no extractable text.
	ErrEmptyDocument = errors.New("document contains no extractable text")

	// ErrRunNotFound indicates an unknown run id.
	ErrRunNotFound = errors.New("analysis run not found")

	// ErrAlreadyStarted guards the pipeline against a duplicate dispatch for
	// the same uploaded file.
	ErrAlreadyStarted = errors.New("analysis run already started")

	// ErrNotCompleted indicates the requested artifact needs a completed run.
	ErrNotCompleted = errors.New("analysis run not completed")
)
