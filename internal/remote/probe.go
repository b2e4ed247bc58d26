package remote

import (
	"context"
	"errors"
	"strings"
)

// ErrNoCandidates is recorded when a probe is started with an empty candidate list.
var ErrNoCandidates = errors.New("no remote candidates configured")

// ProbeError collects the failure of every attempted candidate, in order.
type ProbeError struct {
	Errors []error
}

func (e *ProbeError) Error() string {
	if len(e.Errors) == 0 {
		return ErrNoCandidates.Error()
	}
	messages := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		messages = append(messages, err.Error())
	}
	return "all remote candidates failed: " + strings.Join(messages, "; ")
}

func (e *ProbeError) Unwrap() []error {
	return e.Errors
}

// Last returns the most recent attempt error.
func (e *ProbeError) Last() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// All reports whether every recorded error satisfies match.
func (e *ProbeError) All(match func(error) bool) bool {
	for _, err := range e.Errors {
		if !match(err) {
			return false
		}
	}
	return true
}

// Any reports whether at least one recorded error satisfies match.
func (e *ProbeError) Any(match func(error) bool) bool {
	for _, err := range e.Errors {
		if match(err) {
			return true
		}
	}
	return false
}

// FirstSuccess calls attempt for each candidate in order and returns the first result
// that did not fail. Attempts run one after another; the next candidate starts only once
// the previous one answered.
func FirstSuccess[C any, R any](ctx context.Context, candidates []C, attempt func(context.Context, C) (R, error)) (R, error) {
	var zero R
	probe := &ProbeError{}

	if len(candidates) == 0 {
		probe.Errors = append(probe.Errors, ErrNoCandidates)
		return zero, probe
	}

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			probe.Errors = append(probe.Errors, err)
			return zero, probe
		}

		result, err := attempt(ctx, candidate)
		if err == nil {
			return result, nil
		}
		probe.Errors = append(probe.Errors, err)
	}

	return zero, probe
}
