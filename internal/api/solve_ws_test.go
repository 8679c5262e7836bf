package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialSolveWS(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/solve/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func wsSend(t *testing.T, conn *websocket.Conn, m wsMessage) {
	t.Helper()
	if err := conn.WriteJSON(m); err != nil {
		t.Fatalf("write %s: %v", m.Type, err)
	}
}

func wsRead(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m wsMessage
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

// Two subscriptions on one socket mean two pump goroutines writing
// frames at the same time. Every frame must still arrive intact.
func TestSolveWSConcurrentSubscriptions(t *testing.T) {
	s := newTestServer(t)
	conn := dialSolveWS(t, s)

	wsSend(t, conn, wsMessage{Type: "connection_init"})
	if m := wsRead(t, conn); m.Type != "connection_ack" {
		t.Fatalf("expected connection_ack, got %s", m.Type)
	}

	subscribe := func(id, solveID string) {
		pl, _ := json.Marshal(wsSubscribePayload{SolveID: solveID})
		wsSend(t, conn, wsMessage{Type: "subscribe", ID: id, Payload: pl})
	}
	subscribe("sub-a", "solve-a")
	subscribe("sub-b", "solve-b")
	time.Sleep(50 * time.Millisecond) // let the server register both

	var wg sync.WaitGroup
	for _, sid := range []string{"solve-a", "solve-b"} {
		wg.Add(1)
		go func(sid string) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				s.Broker.Publish(sid, SolveEvent{Type: "solve.running", Data: map[string]any{"solveId": sid}})
				time.Sleep(time.Millisecond)
			}
		}(sid)
	}

	got := map[string]int{}
	deadline := time.Now().Add(3 * time.Second)
	for (got["sub-a"] < 5 || got["sub-b"] < 5) && time.Now().Before(deadline) {
		m := wsRead(t, conn)
		if m.Type != "next" {
			continue
		}
		var evt struct {
			Type string         `json:"type"`
			Data map[string]any `json:"data"`
		}
		if err := json.Unmarshal(m.Payload, &evt); err != nil {
			t.Fatalf("garbled next frame: %v", err)
		}
		got[m.ID]++
	}
	wg.Wait()
	if got["sub-a"] < 5 || got["sub-b"] < 5 {
		t.Fatalf("missing events per subscription: %+v", got)
	}

	// Completing one subscription ends its pump with a complete frame.
	wsSend(t, conn, wsMessage{Type: "complete", ID: "sub-a"})
	for {
		m := wsRead(t, conn)
		if m.Type == "complete" && m.ID == "sub-a" {
			break
		}
	}
}
