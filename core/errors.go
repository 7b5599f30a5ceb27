package core

import "fmt"

// DataError reports malformed, missing, or non-finite odds or probabilities.
// Inputs that would otherwise propagate NaN/Inf through the math fail fast
// with a DataError instead of being defaulted.
type DataError struct {
	Field  string
	Reason string
}

func (e *DataError) Error() string {
	if e.Field == "" {
		return "data error: " + e.Reason
	}
	return fmt.Sprintf("data error: %s: %s", e.Field, e.Reason)
}

// NewDataError builds a DataError for a named field.
func NewDataError(field, format string, args ...any) *DataError {
	return &DataError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// MatchError reports that no open market could be bound to a prediction.
// Unmatched predictions stay visible for manual follow-up; this is not fatal.
type MatchError struct {
	GameID string
	Reason string
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("no market match for game %s: %s", e.GameID, e.Reason)
}

// VenueError reports an order submission or venue API failure. It is
// captured per candidate and never aborts the remaining batch.
type VenueError struct {
	Op     string
	Status int
	Err    error
}

func (e *VenueError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("venue %s failed: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("venue %s failed: %v", e.Op, e.Err)
}

func (e *VenueError) Unwrap() error { return e.Err }

// ConfigError reports missing or unusable configuration, e.g. absent venue
// credentials. The execution path degrades to simulated mode on it rather
// than failing outright.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Key, e.Reason)
}
