// Package main runs a demo WebSocket client for solve events: it adds
// a couple of customers, submits a solve, and streams its lifecycle.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Seed a small scenario
	for _, body := range []string{`{"x":10,"y":0}`, `{"x":0,"y":10}`} {
		req, _ := http.NewRequest(http.MethodPost, base+"/v1/scenario/nodes", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		if _, err := http.DefaultClient.Do(req); err != nil {
			log.Fatal(err)
		}
	}

	// Connect WS before submitting so no events are missed
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/solve/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}

	// Submit a solve
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/solve", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var sub struct {
		SolveID string `json:"solveId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		log.Fatal(err)
	}
	if sub.SolveID == "" {
		log.Fatal("no solveId returned")
	}
	log.Printf("Solve ID: %s", sub.SolveID)

	// Subscribe to its events
	pl, _ := json.Marshal(map[string]any{"solveId": sub.SolveID})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// Wait briefly to receive the lifecycle messages
	select {
	case <-time.After(3 * time.Second):
	case <-done:
	}
}
