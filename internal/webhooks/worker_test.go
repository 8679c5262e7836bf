package webhooks

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jkleinau/VRP/internal/config"
)

func TestWorkerProcessOnce_SuccessAndSignature(t *testing.T) {
	var gotSig, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		gotType = r.Header.Get("X-Event-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	q := NewQueue()
	w := &Worker{Queue: q, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 3}
	q.Enqueue("solve.completed", srv.URL, "secret", []byte(`{"id":"evt1"}`))

	w.processOnce()

	if gotSig == "" || gotType != "solve.completed" {
		t.Fatalf("missing signature/type headers: sig=%q type=%q", gotSig, gotType)
	}
	if !VerifyHMAC("secret", gotBody, gotSig) {
		t.Fatalf("signature does not verify over delivered body")
	}
	if q.PendingCount() != 0 {
		t.Fatalf("expected delivery drained, %d pending", q.PendingCount())
	}
}

func TestWorkerProcessOnce_RetriesThenDeadLetters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500) }))
	defer srv.Close()

	q := NewQueue()
	w := &Worker{Queue: q, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 1}
	q.Enqueue("solve.failed", srv.URL, "", []byte(`{}`))

	w.processOnce()

	if q.PendingCount() != 0 {
		t.Fatalf("expected delivery dead-lettered, %d pending", q.PendingCount())
	}
	dead := q.DeadLetters()
	if len(dead) != 1 || dead[0].EventType != "solve.failed" {
		t.Fatalf("unexpected dead letters: %+v", dead)
	}
}

func TestWorkerProcessOnce_BackoffReschedules(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(503) }))
	defer srv.Close()

	q := NewQueue()
	w := &Worker{Queue: q, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 5}
	q.Enqueue("solve.completed", srv.URL, "", []byte(`{}`))

	w.processOnce()

	if q.PendingCount() != 1 {
		t.Fatalf("expected delivery still pending, got %d", q.PendingCount())
	}
	// Rescheduled into the future, so nothing is due right now.
	if due := q.FetchDue(10); len(due) != 0 {
		t.Fatalf("expected no due deliveries after backoff, got %d", len(due))
	}
}

func TestPublisherEventFilter(t *testing.T) {
	q := NewQueue()
	p := NewPublisher(q, []config.Subscription{
		{URL: "http://a.example/hook", Events: []string{"solve.completed"}},
		{URL: "http://b.example/hook"}, // no filter: everything
	})

	p.Emit("solve.failed", map[string]any{"solveId": "s1"})
	if q.PendingCount() != 1 {
		t.Fatalf("expected only the unfiltered subscription enqueued, got %d", q.PendingCount())
	}

	p.Emit("solve.completed", map[string]any{"solveId": "s2"})
	if q.PendingCount() != 3 {
		t.Fatalf("expected both subscriptions enqueued, got %d", q.PendingCount())
	}
}
