package service

import "fmt"

// ValidationError reports input rejected locally, before any remote call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PreconditionError reports an operation attempted in a state that forbids it.
// Like validation failures these are raised before any remote call.
type PreconditionError struct {
	Op      string
	Message string
}

func (e *PreconditionError) Error() string {
	return e.Message
}

// ExtractionError reports a file that went through processing without
// yielding usable text. Batch flows degrade the affected artifact instead of
// aborting on this error.
type ExtractionError struct {
	FileName string
	Message  string
}

func (e *ExtractionError) Error() string {
	if e.FileName == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.FileName, e.Message)
}
