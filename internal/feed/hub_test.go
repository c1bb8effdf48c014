package feed

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

func newServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	hub := NewHub(logger)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, indices ...string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := conn.WriteJSON(Request{Type: "subscribe", Indices: indices}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if msg := read(t, conn); msg.Type != "subscribed" {
		t.Fatalf("expected subscribed ack, got %+v", msg)
	}
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func TestHub_FiltersByIndex(t *testing.T) {
	hub, srv := newServer(t)
	all := dial(t, srv)
	nifty := dial(t, srv, "nifty")
	if hub.Clients() != 2 {
		t.Fatalf("expected 2 clients, got %d", hub.Clients())
	}

	if err := hub.Publish(context.Background(), "bias:SENSEX", map[string]float64{"score": -12}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	hub.Broadcast(Message{Type: "bias", Index: "NIFTY", Data: map[string]float64{"score": 40}})

	if msg := read(t, all); msg.Type != "bias" || msg.Index != "SENSEX" {
		t.Errorf("expected SENSEX bias first, got %+v", msg)
	}
	if msg := read(t, all); msg.Index != "NIFTY" {
		t.Errorf("expected NIFTY bias second, got %+v", msg)
	}
	msg := read(t, nifty)
	if msg.Index != "NIFTY" {
		t.Errorf("NIFTY subscriber must skip SENSEX, got %+v", msg)
	}
	data, ok := msg.Data.(map[string]any)
	if !ok || data["score"] != 40.0 {
		t.Errorf("unexpected payload %#v", msg.Data)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub, srv := newServer(t)
	conn := dial(t, srv, "NIFTY", "SENSEX")
	if err := conn.WriteJSON(Request{Type: "unsubscribe", Indices: []string{"NIFTY"}}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if msg := read(t, conn); msg.Type != "unsubscribed" {
		t.Fatalf("expected unsubscribed ack, got %+v", msg)
	}
	hub.Broadcast(Message{Type: "signal", Index: "NIFTY"})
	hub.Broadcast(Message{Type: "signal", Index: "SENSEX"})
	if msg := read(t, conn); msg.Index != "SENSEX" {
		t.Errorf("expected only SENSEX after unsubscribe, got %+v", msg)
	}
}
