package sensitivity

import (
	"fmt"
	"strings"
)

// ConfigurationError is a fatal problem with the inputs of one band.
type ConfigurationError struct {
	Band        string
	Observation int // -1 when not specific to a cell
	Detector    int // -1 when not specific to a cell
	Err         error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "band %q", e.Band)
	if e.Observation >= 0 {
		fmt.Fprintf(&b, " observation %d", e.Observation)
	}
	if e.Detector >= 0 {
		fmt.Fprintf(&b, " detector %d", e.Detector)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func bandError(band string, err error) *ConfigurationError {
	return &ConfigurationError{Band: band, Observation: -1, Detector: -1, Err: err}
}
