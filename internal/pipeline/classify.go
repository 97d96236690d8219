package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tripvoucher/internal"
	"tripvoucher/internal/logging"
)

var ErrNoDecider = errors.New("excursion needs a manual decision but no decision source is configured")

// Decider answers the excursions the keyword rules cannot place. Decide blocks
// until a tag is chosen.
type Decider interface {
	Decide(ctx context.Context, excursion string) (internal.Category, error)
}

type DeciderFunc func(ctx context.Context, excursion string) (internal.Category, error)

func (f DeciderFunc) Decide(ctx context.Context, excursion string) (internal.Category, error) {
	return f(ctx, excursion)
}

// ClassifyByRules applies the keyword rules in priority order.
func ClassifyByRules(excursion string) (internal.Category, bool) {
	e := strings.ToLower(excursion)
	switch {
	case strings.Contains(e, "transfer"):
		return internal.CategoryTransfer, true
	case strings.Contains(e, "city") && strings.Contains(e, "tour"):
		return internal.CategoryCityTour, true
	case strings.Contains(e, "private") && strings.Contains(e, "tour"):
		return internal.CategoryPrivTour, true
	case strings.Contains(e, "safari"):
		return internal.CategorySafari, true
	case strings.Contains(e, "self") || strings.Contains(e, "tickets"):
		return internal.CategoryGroupTix, true
	}
	return "", false
}

type Classifier struct {
	decider Decider
	log     *slog.Logger
}

func NewClassifier(decider Decider, log *slog.Logger) *Classifier {
	return &Classifier{decider: decider, log: logging.OrDiscard(log)}
}

func (c *Classifier) Classify(ctx context.Context, excursion string) (internal.Category, error) {
	if category, ok := ClassifyByRules(excursion); ok {
		return category, nil
	}
	if c.decider == nil {
		return "", fmt.Errorf("classify %q: %w", excursion, ErrNoDecider)
	}

	c.log.Debug("excursion needs a decision", slog.String("excursion", excursion))
	category, err := c.decider.Decide(ctx, excursion)
	if err != nil {
		return "", fmt.Errorf("classify %q: %w", excursion, err)
	}
	category, err = internal.ParseCategory(string(category))
	if err != nil {
		return "", fmt.Errorf("classify %q: %w", excursion, err)
	}
	c.log.Info("excursion classified", slog.String("excursion", excursion), slog.String("category", string(category)))
	return category, nil
}
