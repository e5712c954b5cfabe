package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is matched (errors.Is) by ValidationError and AggregateError.
var ErrInvalid = errors.New("validation failed")

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Key    string // Field path, "$" for the document root
	Reason string // Human-readable reason for failure
	Value  any    // The value that failed validation
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("field %q: %s (got %T)", e.Key, e.Reason, e.Value)
}

// Is lets errors.Is(err, ErrInvalid) match.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// Is lets errors.Is(err, ErrInvalid) match.
func (e *AggregateError) Is(target error) bool { return target == ErrInvalid }

// Unwrap exposes the individual failures to errors.As.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}

// Invalid builds a single-field ValidationError.
func Invalid(key, reason string, value any) error {
	return &ValidationError{Key: key, Reason: reason, Value: value}
}

func aggregate(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &AggregateError{Errors: errs}
}

// nest re-keys the failures of a nested value under key.
func nest(key string, err error, value any) []error {
	var out []error
	if inner := ValidationErrors(err); inner != nil {
		for _, e := range inner {
			var ve *ValidationError
			if errors.As(e, &ve) {
				out = append(out, &ValidationError{Key: joinKey(key, ve.Key), Reason: ve.Reason, Value: ve.Value})
				continue
			}
			out = append(out, &ValidationError{Key: key, Reason: e.Error(), Value: value})
		}
		return out
	}
	return []error{&ValidationError{Key: key, Reason: err.Error(), Value: value}}
}

func joinKey(parent, child string) string {
	switch {
	case parent == "":
		return child
	case child == "":
		return parent
	case strings.HasPrefix(child, "["):
		return parent + child
	default:
		return parent + "." + child
	}
}
