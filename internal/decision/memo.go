package decision

import (
	"context"
	"log/slog"

	"tripvoucher/internal"
	"tripvoucher/internal/logging"
)

type Store interface {
	GetDecision(excursion string) (*internal.Decision, error)
	SaveDecision(excursion string, category internal.Category, origin string) error
}

// Memo answers from stored decisions and remembers what its fallback says.
type Memo struct {
	store    Store
	fallback Decider
	origin   string
	log      *slog.Logger
}

func NewMemo(store Store, fallback Decider, origin string, log *slog.Logger) *Memo {
	return &Memo{store: store, fallback: fallback, origin: origin, log: logging.OrDiscard(log)}
}

func (m *Memo) Decide(ctx context.Context, excursion string) (internal.Category, error) {
	stored, err := m.store.GetDecision(excursion)
	if err != nil {
		return "", err
	}
	if stored != nil {
		if category, err := internal.ParseCategory(string(stored.Category)); err == nil {
			return category, nil
		}
		m.log.Warn("ignoring stored decision", slog.String("excursion", excursion), slog.String("category", string(stored.Category)))
	}
	if m.fallback == nil {
		return "", ErrUndecided
	}

	category, err := m.fallback.Decide(ctx, excursion)
	if err != nil {
		return "", err
	}
	if err := m.store.SaveDecision(excursion, category, m.origin); err != nil {
		m.log.Warn("decision not saved", slog.String("excursion", excursion), slog.Any("err", err))
	}
	return category, nil
}

// Known reports whether store already holds a usable answer for excursion.
func Known(store Store) func(excursion string) bool {
	return func(excursion string) bool {
		stored, err := store.GetDecision(excursion)
		if err != nil || stored == nil {
			return false
		}
		_, err = internal.ParseCategory(string(stored.Category))
		return err == nil
	}
}
