package webhooks

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Delivery is one pending webhook POST.
type Delivery struct {
	ID            string
	EventType     string
	URL           string
	Secret        string
	Payload       []byte
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
}

// Queue is an in-memory delivery queue with retry scheduling. Failed
// deliveries past their attempt budget move to the dead-letter list.
type Queue struct {
	mu      sync.Mutex
	pending map[string]*Delivery
	dead    []Delivery
}

func NewQueue() *Queue {
	return &Queue{pending: map[string]*Delivery{}}
}

// Enqueue schedules a delivery for immediate attempt and returns its id.
func (q *Queue) Enqueue(eventType, url, secret string, payload []byte) string {
	d := &Delivery{
		ID:            uuid.NewString(),
		EventType:     eventType,
		URL:           url,
		Secret:        secret,
		Payload:       payload,
		NextAttemptAt: time.Now(),
	}
	q.mu.Lock()
	q.pending[d.ID] = d
	q.mu.Unlock()
	return d.ID
}

// FetchDue returns up to limit deliveries whose next attempt is due.
func (q *Queue) FetchDue(limit int) []Delivery {
	now := time.Now()
	q.mu.Lock()
	defer q.mu.Unlock()
	var due []Delivery
	for _, d := range q.pending {
		if len(due) >= limit {
			break
		}
		if !d.NextAttemptAt.After(now) {
			due = append(due, *d)
		}
	}
	return due
}

// Mark records an attempt outcome: success removes the delivery,
// failure reschedules it at next.
func (q *Queue) Mark(id string, success bool, next time.Time, lastError string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d, ok := q.pending[id]
	if !ok {
		return
	}
	if success {
		delete(q.pending, id)
		return
	}
	d.Attempts++
	d.NextAttemptAt = next
	d.LastError = lastError
}

// Fail moves the delivery to the dead-letter list.
func (q *Queue) Fail(id, lastError string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d, ok := q.pending[id]
	if !ok {
		return
	}
	delete(q.pending, id)
	d.Attempts++
	d.LastError = lastError
	q.dead = append(q.dead, *d)
}

// DeadLetters returns a copy of the dead-letter list.
func (q *Queue) DeadLetters() []Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Delivery(nil), q.dead...)
}

// PendingCount reports undelivered items, for readiness and tests.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
