package build

import "fmt"

// FetchError marks a source that degraded to an empty result this run.
// It never aborts the run; the CLI reports it as a warning at exit.
type FetchError struct {
	Pipeline string
	Kind     string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("pipeline %s (%s): %v", e.Pipeline, e.Kind, e.Err)
}
