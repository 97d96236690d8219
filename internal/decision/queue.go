package decision

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tripvoucher/internal"
)

// Request is a snapshot of one waiting question.
type Request struct {
	ID        string    `json:"id"`
	Excursion string    `json:"excursion"`
	CreatedAt time.Time `json:"createdAt"`
}

type waiting struct {
	Request
	reply chan internal.Category
}

// Queue parks Decide calls until someone resolves them, oldest first.
type Queue struct {
	mu    sync.Mutex
	items []*waiting
}

func NewQueue() *Queue {
	return &Queue{}
}

// Decide enqueues excursion and blocks until the request is resolved or ctx
// ends. A cancelled request leaves the queue.
func (q *Queue) Decide(ctx context.Context, excursion string) (internal.Category, error) {
	w := &waiting{
		Request: Request{ID: uuid.NewString(), Excursion: excursion, CreatedAt: time.Now().UTC()},
		reply:   make(chan internal.Category, 1),
	}
	q.mu.Lock()
	q.items = append(q.items, w)
	q.mu.Unlock()

	select {
	case category := <-w.reply:
		return category, nil
	case <-ctx.Done():
		q.remove(w.ID)
		return "", ctx.Err()
	}
}

func (q *Queue) Pending() []Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Request, 0, len(q.items))
	for _, w := range q.items {
		out = append(out, w.Request)
	}
	return out
}

func (q *Queue) Head() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Request{}, false
	}
	return q.items[0].Request, true
}

// Resolve answers the oldest request. Answering any other request fails with
// ErrNotHead so questions are handled in the order they were asked.
func (q *Queue) Resolve(id string, tag string) (Request, error) {
	category, err := internal.ParseCategory(tag)
	if err != nil {
		return Request{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.items {
		if w.ID != id {
			continue
		}
		if i != 0 {
			return Request{}, ErrNotHead
		}
		q.items = q.items[1:]
		w.reply <- category
		return w.Request, nil
	}
	return Request{}, ErrUnknownRequest
}

func (q *Queue) remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.items {
		if w.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}
