package webhooks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jkleinau/VRP/internal/config"
)

// Publisher fans an event out to every matching subscription by
// enqueueing one delivery per subscriber.
type Publisher struct {
	Queue *Queue
	Subs  []config.Subscription
}

func NewPublisher(q *Queue, subs []config.Subscription) *Publisher {
	return &Publisher{Queue: q, Subs: subs}
}

// Emit enqueues the event for all subscriptions whose event filter
// matches. An empty filter matches everything.
func (p *Publisher) Emit(eventType string, data any) {
	payload := map[string]any{
		"id":   fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"type": eventType,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, sub := range p.Subs {
		if !matches(sub.Events, eventType) {
			continue
		}
		p.Queue.Enqueue(eventType, sub.URL, sub.Secret, body)
	}
}

func matches(filter []string, eventType string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, e := range filter {
		if e == eventType {
			return true
		}
	}
	return false
}
