package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripvoucher/internal"
)

func TestClassifyByRules(t *testing.T) {
	cases := []struct {
		input string
		want  internal.Category
	}{
		{input: "Airport Transfer", want: internal.CategoryTransfer},
		{input: "Transfer to the safari camp", want: internal.CategoryTransfer},
		{input: "Tour of the old city", want: internal.CategoryCityTour},
		{input: "Private city tour", want: internal.CategoryCityTour},
		{input: "PRIVATE TOUR to Porvoo", want: internal.CategoryPrivTour},
		{input: "Husky Safari", want: internal.CategorySafari},
		{input: "Self-guided museum visit", want: internal.CategoryGroupTix},
		{input: "Opera tickets", want: internal.CategoryGroupTix},
	}
	for _, tc := range cases {
		got, ok := ClassifyByRules(tc.input)
		require.True(t, ok, tc.input)
		assert.Equal(t, tc.want, got, tc.input)
	}

	_, ok := ClassifyByRules("Dinner cruise")
	assert.False(t, ok)
}

func TestClassifierAsksDeciderOnlyWhenRulesFail(t *testing.T) {
	asked := []string{}
	c := NewClassifier(DeciderFunc(func(_ context.Context, excursion string) (internal.Category, error) {
		asked = append(asked, excursion)
		return internal.CategoryGroupTix, nil
	}), nil)

	got, err := c.Classify(context.Background(), "Airport transfer")
	require.NoError(t, err)
	assert.Equal(t, internal.CategoryTransfer, got)

	got, err = c.Classify(context.Background(), "Dinner cruise")
	require.NoError(t, err)
	assert.Equal(t, internal.CategoryGroupTix, got)
	assert.Equal(t, []string{"Dinner cruise"}, asked)
}

func TestClassifierRejectsUnknownTag(t *testing.T) {
	c := NewClassifier(DeciderFunc(func(context.Context, string) (internal.Category, error) {
		return "boat", nil
	}), nil)
	_, err := c.Classify(context.Background(), "Dinner cruise")
	assert.ErrorIs(t, err, internal.ErrUnknownCategory)
}

func TestClassifierWithoutDecider(t *testing.T) {
	_, err := NewClassifier(nil, nil).Classify(context.Background(), "Dinner cruise")
	assert.ErrorIs(t, err, ErrNoDecider)
}

func TestClassifierPropagatesDeciderError(t *testing.T) {
	boom := errors.New("boom")
	c := NewClassifier(DeciderFunc(func(context.Context, string) (internal.Category, error) {
		return "", boom
	}), nil)
	_, err := c.Classify(context.Background(), "Dinner cruise")
	assert.ErrorIs(t, err, boom)
}
