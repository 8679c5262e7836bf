package webhooks

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/jkleinau/VRP/internal/metrics"
)

// Worker drains the delivery queue: POST with HMAC signature headers,
// exponential backoff on failure, dead-letter after MaxAttempts.
type Worker struct {
	Queue       *Queue
	HTTP        *http.Client
	Stop        chan struct{}
	MaxAttempts int
}

func NewWorker(q *Queue, maxAttempts int) *Worker {
	if maxAttempts < 1 {
		maxAttempts = 10
	}
	return &Worker{
		Queue:       q,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		Stop:        make(chan struct{}),
		MaxAttempts: maxAttempts,
	}
}

func (w *Worker) Start() {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-w.Stop:
				return
			case <-ticker.C:
				w.processOnce()
			}
		}
	}()
}

func (w *Worker) processOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	items := w.Queue.FetchDue(50)
	for _, it := range items {
		success := false
		next := time.Now().Add(nextBackoff(it.Attempts))
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, it.URL, bytes.NewReader(it.Payload))
		req.Header.Set("Content-Type", "application/json")
		if it.Secret != "" {
			req.Header.Set("X-Signature", SignHMAC(it.Secret, it.Payload))
		}
		req.Header.Set("X-Event-Type", it.EventType)

		start := time.Now()
		resp, err := w.HTTP.Do(req)
		latency := float64(time.Since(start).Milliseconds())
		code := 0
		if err == nil && resp != nil {
			code = resp.StatusCode
			if resp.Body != nil {
				_ = resp.Body.Close()
			}
			if code >= 200 && code < 300 {
				success = true
			}
		}
		status := strconv.Itoa(code)
		if success {
			metrics.WebhookDeliveries.WithLabelValues(it.EventType, status).Inc()
		} else {
			metrics.WebhookDeliveries.WithLabelValues(it.EventType, "error").Inc()
		}
		metrics.WebhookLatency.WithLabelValues(it.EventType, status).Observe(latency)

		lastErr := ""
		if !success && err != nil {
			lastErr = err.Error()
		}
		if !success && it.Attempts+1 >= w.MaxAttempts {
			w.Queue.Fail(it.ID, lastErr)
			continue
		}
		w.Queue.Mark(it.ID, success, next, lastErr)
	}
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
