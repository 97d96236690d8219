// Package decision holds the sources a build asks when the keyword rules
// cannot place an excursion: an in-process queue answered over HTTP, the
// terminal, a remote classification service, stored answers and deferred
// requests for unattended runs.
package decision

import (
	"context"
	"errors"

	"tripvoucher/internal"
)

var (
	// ErrDecisionPending means the request was recorded for later and the
	// build has to be run again once it is answered.
	ErrDecisionPending = errors.New("decision pending")
	ErrNotHead         = errors.New("only the oldest pending request can be resolved")
	ErrUnknownRequest  = errors.New("unknown decision request")
	ErrUndecided       = errors.New("no stored decision and no fallback")
)

type Decider interface {
	Decide(ctx context.Context, excursion string) (internal.Category, error)
}
