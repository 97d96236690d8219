package decision

import (
	"context"
	"fmt"

	"tripvoucher/internal"
)

type PendingStore interface {
	InsertPendingDecision(emailID *int, excursion string) (internal.PendingDecision, error)
}

// Deferred records the question instead of waiting for an answer.
type Deferred struct {
	store   PendingStore
	emailID *int
}

func NewDeferred(store PendingStore, emailID *int) *Deferred {
	return &Deferred{store: store, emailID: emailID}
}

func (d *Deferred) Decide(_ context.Context, excursion string) (internal.Category, error) {
	p, err := d.store.InsertPendingDecision(d.emailID, excursion)
	if err != nil {
		return "", err
	}
	return "", fmt.Errorf("%w: request %s", ErrDecisionPending, p.ID)
}
