package scan

import "fmt"

// InvalidTargetError reports input that cannot be resolved to a hostname.
type InvalidTargetError struct {
	Input  string
	Reason string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target %q: %s", e.Input, e.Reason)
}

// OrchestrationError reports a failure outside the probes themselves, such
// as report assembly. Probe-internal failures never produce one.
type OrchestrationError struct {
	Stage string
	Err   error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Stage, e.Err)
}

func (e *OrchestrationError) Unwrap() error { return e.Err }
