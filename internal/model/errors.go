package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData means fewer bars than an indicator's minimum window.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerateInput covers zero-volume series, zero-range bars and zero total weight.
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrNoData is returned by the fetch boundary when a source has nothing for the request.
	ErrNoData = errors.New("no data")
	// ErrMalformedSeries is returned for series that break the bar invariants.
	ErrMalformedSeries = errors.New("malformed series")
)

// ConfigError identifies an invalid configuration parameter.
type ConfigError struct {
	Param  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s=%v: %s", e.Param, e.Value, e.Reason)
}

// NewConfigError builds a *ConfigError.
func NewConfigError(param string, value any, reason string) error {
	return &ConfigError{Param: param, Value: value, Reason: reason}
}
