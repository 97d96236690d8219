package decision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripvoucher/internal"
)

type answer struct {
	category internal.Category
	err      error
}

func decideAsync(ctx context.Context, q *Queue, excursion string) <-chan answer {
	out := make(chan answer, 1)
	go func() {
		c, err := q.Decide(ctx, excursion)
		out <- answer{c, err}
	}()
	return out
}

func waitPending(t *testing.T, q *Queue, n int) []Request {
	t.Helper()
	require.Eventually(t, func() bool { return len(q.Pending()) == n }, time.Second, 5*time.Millisecond)
	return q.Pending()
}

func TestQueueResolvesInOrder(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	first := decideAsync(ctx, q, "Dinner cruise")
	waitPending(t, q, 1)
	second := decideAsync(ctx, q, "Sauna evening")
	pending := waitPending(t, q, 2)
	assert.Equal(t, "Dinner cruise", pending[0].Excursion)

	head, ok := q.Head()
	require.True(t, ok)
	assert.Equal(t, pending[0].ID, head.ID)

	_, err := q.Resolve(pending[1].ID, "safari")
	assert.ErrorIs(t, err, ErrNotHead)

	_, err = q.Resolve(head.ID, "bogus")
	assert.ErrorIs(t, err, internal.ErrUnknownCategory)

	resolved, err := q.Resolve(head.ID, "Group/Tix")
	require.NoError(t, err)
	assert.Equal(t, "Dinner cruise", resolved.Excursion)
	got := <-first
	require.NoError(t, got.err)
	assert.Equal(t, internal.CategoryGroupTix, got.category)

	_, err = q.Resolve(pending[1].ID, "safari")
	require.NoError(t, err)
	got = <-second
	require.NoError(t, got.err)
	assert.Equal(t, internal.CategorySafari, got.category)

	_, ok = q.Head()
	assert.False(t, ok)
	_, err = q.Resolve(head.ID, "safari")
	assert.ErrorIs(t, err, ErrUnknownRequest)
}

func TestQueueCancelledRequestLeaves(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())

	res := decideAsync(ctx, q, "Dinner cruise")
	waitPending(t, q, 1)
	cancel()

	got := <-res
	assert.ErrorIs(t, got.err, context.Canceled)
	assert.Empty(t, q.Pending())
}
