package schedule

import (
	"errors"
	"fmt"

	"github.com/roach88/sqlpoll/internal/emit"
	"github.com/roach88/sqlpoll/internal/query"
	"github.com/roach88/sqlpoll/internal/value"
)

var (
	// ErrCycleInProgress is returned by RunCycle when another cycle is
	// running. The request is dropped.
	ErrCycleInProgress = errors.New("cycle already in progress")

	// ErrStopped is returned once the controller has stopped.
	ErrStopped = errors.New("controller stopped")

	// ErrAlreadyStarted is returned by a second call to Run.
	ErrAlreadyStarted = errors.New("controller already started")
)

// ErrorCode categorizes cycle failures.
type ErrorCode string

const (
	// CodeBinding: a placeholder had no parameter. No query was sent.
	CodeBinding ErrorCode = "BINDING"

	// CodeQuery: the database could not be reached, or rejected or failed
	// the statement.
	CodeQuery ErrorCode = "QUERY"

	// CodeTypeMismatch: a row value could not be ordered against its
	// watermark. Earlier rows of the cycle stay published and folded.
	CodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// CodePublish: the output boundary rejected a record.
	CodePublish ErrorCode = "PUBLISH"

	// CodeInternal: anything else.
	CodeInternal ErrorCode = "INTERNAL"
)

// CycleError describes why a cycle ended early.
type CycleError struct {
	Code    ErrorCode
	CycleID string
	Seq     int64

	// Rows is the number of rows published before the failure.
	Rows int64

	Err error
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: cycle %d (%s) after %d rows: %v", e.Code, e.Seq, e.CycleID, e.Rows, e.Err)
}

// Unwrap returns the underlying error.
func (e *CycleError) Unwrap() error {
	return e.Err
}

// codeOf classifies err by the component that produced it.
func codeOf(err error) ErrorCode {
	var (
		be  *query.BindingError
		qe  *query.QueryError
		tme *value.TypeMismatchError
		pe  *emit.PublishError
	)
	switch {
	case errors.As(err, &be):
		return CodeBinding
	case errors.As(err, &qe):
		return CodeQuery
	case errors.As(err, &tme):
		return CodeTypeMismatch
	case errors.As(err, &pe):
		return CodePublish
	default:
		return CodeInternal
	}
}

func hasCode(err error, code ErrorCode) bool {
	var ce *CycleError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsBindingError reports whether err is a cycle failure caused by an
// unresolved parameter.
func IsBindingError(err error) bool {
	return hasCode(err, CodeBinding)
}

// IsQueryError reports whether err is a cycle failure caused by the database.
func IsQueryError(err error) bool {
	return hasCode(err, CodeQuery)
}

// IsTypeMismatch reports whether err is a cycle failure caused by an
// incomparable watermark value.
func IsTypeMismatch(err error) bool {
	return hasCode(err, CodeTypeMismatch)
}

// IsPublishError reports whether err is a cycle failure caused by the output
// boundary.
func IsPublishError(err error) bool {
	return hasCode(err, CodePublish)
}
