package types

import (
	"errors"
	"fmt"
)

// FailureKind classifies an analysis failure.
type FailureKind string

const (
	FailureInvalidInput      FailureKind = "invalid_input"
	FailureOracleUnavailable FailureKind = "oracle_unavailable"
	FailureOracleMalformed   FailureKind = "oracle_malformed"
	FailureOracleIncomplete  FailureKind = "oracle_incomplete"
	FailureScoring           FailureKind = "scoring_failed"
)

// AnalysisError is the error arm of every component result.
type AnalysisError struct {
	Kind    FailureKind
	Message string
	Details string
	Err     error
}

func (e *AnalysisError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewAnalysisError builds an AnalysisError whose details come from err.
func NewAnalysisError(kind FailureKind, message string, err error) *AnalysisError {
	ae := &AnalysisError{Kind: kind, Message: message, Err: err}
	if err != nil {
		ae.Details = err.Error()
	}
	return ae
}

// KindOf returns the failure kind carried by err, or "" if err is not an AnalysisError.
func KindOf(err error) FailureKind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
