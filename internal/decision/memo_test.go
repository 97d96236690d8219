package decision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripvoucher/internal"
	"tripvoucher/internal/util"
)

type memStore struct {
	decisions map[string]internal.Decision
	pending   []internal.PendingDecision
}

func newMemStore() *memStore {
	return &memStore{decisions: map[string]internal.Decision{}}
}

func (s *memStore) GetDecision(excursion string) (*internal.Decision, error) {
	d, ok := s.decisions[util.DecisionKey(excursion)]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *memStore) SaveDecision(excursion string, category internal.Category, origin string) error {
	key := util.DecisionKey(excursion)
	s.decisions[key] = internal.Decision{Key: key, Excursion: excursion, Category: category, Origin: origin}
	return nil
}

func (s *memStore) InsertPendingDecision(emailID *int, excursion string) (internal.PendingDecision, error) {
	p := internal.PendingDecision{ID: "p-" + excursion, EmailID: emailID, Key: util.DecisionKey(excursion), Excursion: excursion}
	s.pending = append(s.pending, p)
	return p, nil
}

type countingDecider struct {
	calls  int
	answer internal.Category
	err    error
}

func (d *countingDecider) Decide(context.Context, string) (internal.Category, error) {
	d.calls++
	return d.answer, d.err
}

func TestMemoRemembersFallbackAnswer(t *testing.T) {
	store := newMemStore()
	fallback := &countingDecider{answer: internal.CategorySafari}
	memo := NewMemo(store, fallback, "terminal", nil)

	c, err := memo.Decide(context.Background(), "Reindeer  farm")
	require.NoError(t, err)
	assert.Equal(t, internal.CategorySafari, c)

	c, err = memo.Decide(context.Background(), "reindeer farm")
	require.NoError(t, err)
	assert.Equal(t, internal.CategorySafari, c)
	assert.Equal(t, 1, fallback.calls)
	assert.Equal(t, "terminal", store.decisions["reindeer farm"].Origin)
	assert.True(t, Known(store)("REINDEER FARM"))
	assert.False(t, Known(store)("Dinner cruise"))
}

func TestMemoSkipsBrokenStoredTag(t *testing.T) {
	store := newMemStore()
	store.decisions["dinner cruise"] = internal.Decision{Key: "dinner cruise", Category: "boat"}
	fallback := &countingDecider{answer: internal.CategoryGroupTix}

	c, err := NewMemo(store, fallback, "http", nil).Decide(context.Background(), "Dinner cruise")
	require.NoError(t, err)
	assert.Equal(t, internal.CategoryGroupTix, c)
	assert.False(t, Known(newMemStore())("Dinner cruise"))
}

func TestMemoWithoutFallback(t *testing.T) {
	_, err := NewMemo(newMemStore(), nil, "", nil).Decide(context.Background(), "Dinner cruise")
	assert.ErrorIs(t, err, ErrUndecided)
}

func TestMemoFallbackErrorIsNotStored(t *testing.T) {
	store := newMemStore()
	boom := errors.New("boom")
	_, err := NewMemo(store, &countingDecider{err: boom}, "", nil).Decide(context.Background(), "Dinner cruise")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.decisions)
}

func TestDeferredRecordsRequest(t *testing.T) {
	store := newMemStore()
	emailID := 7
	_, err := NewDeferred(store, &emailID).Decide(context.Background(), "Dinner cruise")
	assert.ErrorIs(t, err, ErrDecisionPending)
	require.Len(t, store.pending, 1)
	assert.Equal(t, 7, *store.pending[0].EmailID)
	assert.Equal(t, "dinner cruise", store.pending[0].Key)
}
