package customer

import (
	"errors"
	"fmt"

	"github.com/dukerupert/binbill/internal/domain"
)

var (
	// ErrInvalidPhone is returned when a phone number cannot be put in 234XXXXXXXXXX form.
	ErrInvalidPhone = errors.New("invalid phone number")

	// ErrUnsupportedFormat is returned for source files that are neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file type")

	// ErrBusy is returned when work is requested from a pipeline that is not idle.
	ErrBusy = &domain.Error{Code: domain.ECONFLICT, Op: "pipeline", Message: "an upload is already in progress"}

	// ErrNotReady is returned when Confirm is called without a preview waiting.
	ErrNotReady = &domain.Error{Code: domain.ECONFLICT, Op: "pipeline.confirm", Message: "upload has no preview awaiting confirmation"}

	// ErrCancelled is returned by Confirm when the submission was cancelled while in flight.
	ErrCancelled = &domain.Error{Code: domain.ECONFLICT, Op: "pipeline.confirm", Message: "submission was cancelled"}
)

// ParseError reports source text that could not be read as a table.
// No row is evaluated when one is returned.
type ParseError struct {
	Line int // 0 when the error is not tied to a line
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error on line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
