package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by a source used outside its connected state
	ErrNotConnected = errors.New("conversation source not connected")
	// ErrInvalidInterval is returned for scan intervals below one minute
	ErrInvalidInterval = errors.New("scan interval must be at least 1 minute")
	// ErrInvalidWindow is returned for aggregation windows below one message
	ErrInvalidWindow = errors.New("aggregation window must be at least 1")
	// ErrInvalidLabel is returned when a classifier produces an unknown label
	ErrInvalidLabel = errors.New("classifier returned an invalid label")
	// ErrNotStarted is returned when scanning before Start
	ErrNotStarted = errors.New("coordinator not started")
	// ErrStopped is returned when waiting on a stopped coordinator
	ErrStopped = errors.New("coordinator stopped")
)

// ErrorKind classifies pipeline failures
type ErrorKind string

const (
	KindSourceUnavailable ErrorKind = "SOURCE_UNAVAILABLE"
	KindClassification    ErrorKind = "CLASSIFICATION_FAILURE"
	KindPersistence       ErrorKind = "PERSISTENCE_FAILURE"
	KindConfiguration     ErrorKind = "CONFIGURATION_ERROR"
)

// ScanError is a classified pipeline failure
type ScanError struct {
	Kind     ErrorKind
	Op       string
	Identity string
	Err      error
}

// NewScanError creates a ScanError
func NewScanError(kind ErrorKind, op, identity string, err error) *ScanError {
	return &ScanError{Kind: kind, Op: op, Identity: identity, Err: err}
}

func (e *ScanError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Op)
	if e.Identity != "" {
		msg += fmt.Sprintf(" (%s)", e.Identity)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ScanError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind reports whether err carries a ScanError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var scanErr *ScanError
	return errors.As(err, &scanErr) && scanErr.Kind == kind
}
