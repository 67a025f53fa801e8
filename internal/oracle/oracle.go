// Package oracle talks to the generative model that drives the simulation.
//
// The Gateway wraps an Oracle with the JSON contract every structured stage
// relies on: the reply must be a single JSON object that satisfies the
// stage's schema, or the call is reported as a Failure and the caller treats
// the stage as a no-op. Calls are attempted exactly once.
package oracle

import (
	"context"
	"fmt"
)

// Oracle is the raw request/response capability. When structured is set the
// reply is expected to be a single JSON object; otherwise it is prose.
type Oracle interface {
	Invoke(ctx context.Context, system, user string, structured bool) (string, error)
}

// Failure folds every way an oracle call can go wrong into one outcome.
type Failure struct {
	Stage  string
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Stage, f.Reason, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Stage, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }
