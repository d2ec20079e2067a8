package engine

import (
	"errors"
	"fmt"

	"github.com/wenzapen/scout/recipe"
)

// ConfigurationError is fatal: the run stops before or at the offending
// step.
type ConfigurationError = recipe.ConfigurationError

var (
	// ErrElementNotFound marks a locator or path that matched nothing.
	// Extraction steps report it through Outcome.Missing and the trace
	// rather than failing.
	ErrElementNotFound = errors.New("element not found")
	// ErrCancelled is returned when the caller's context ends a run.
	ErrCancelled = errors.New("run cancelled")
	// ErrCollisionRisk is returned by Result.Validate when output may
	// contain text from a wrongly substituted placeholder.
	ErrCollisionRisk = errors.New("variable collision risk")
)

// TransformError is an unusable transform definition, such as a regex
// that does not compile. It is fatal.
type TransformError struct {
	Pattern string
	Err     error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %q: %v", e.Pattern, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// NetworkError is a failed navigation or HTTP request. It fails the step
// but not the run.
type NetworkError struct {
	Op     string
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s %s: status %d", e.Op, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// fatal reports whether err must stop the run.
func fatal(err error) bool {
	var (
		ce *ConfigurationError
		te *TransformError
	)
	return errors.As(err, &ce) || errors.As(err, &te) || errors.Is(err, ErrCancelled)
}

func cancelled(cause error) error {
	return fmt.Errorf("%w: %v", ErrCancelled, cause)
}
