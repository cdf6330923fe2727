package websocket

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// streamServer sends {"conn":N} on every connection. The first connection
// is dropped right after its frame when dropFirst is set.
func streamServer(t *testing.T, dropFirst bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var conns atomic.Int32
	upgrader := websocket.Upgrader{}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		n := conns.Add(1)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(`{"conn":%d}`, n)))
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))

		if dropFirst && n == 1 {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))

	return ts, &conns
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func testConfig(t *testing.T, url string) Config {
	return Config{
		URL:                   url,
		DialTimeout:           time.Second,
		PongTimeout:           2 * time.Second,
		PingInterval:          50 * time.Millisecond,
		ReconnectInitialDelay: 10 * time.Millisecond,
		ReconnectMaxDelay:     50 * time.Millisecond,
		ReconnectBackoffMult:  2.0,
		MessageBufferSize:     4,
		Logger:                zaptest.NewLogger(t),
	}
}

func nextFrame(t *testing.T, c *Client) map[string]int {
	t.Helper()

	select {
	case raw, ok := <-c.Messages():
		if !ok {
			t.Fatal("message channel closed")
		}
		var frame map[string]int
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("unexpected frame %s: %v", raw, err)
		}
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return nil
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: Config{URL: "ws://localhost:8080/ws/flows/bet", Logger: zap.NewNop()}},
		{name: "missing-url", cfg: Config{Logger: zap.NewNop()}, wantErr: true},
		{name: "missing-logger", cfg: Config{URL: "ws://localhost:8080/ws/flows/bet"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cap(c.messageChan) != 16 {
				t.Errorf("expected default buffer 16, got %d", cap(c.messageChan))
			}
			if c.config.PongTimeout <= c.config.PingInterval {
				t.Errorf("pong timeout %v must exceed ping interval %v", c.config.PongTimeout, c.config.PingInterval)
			}
		})
	}
}

func TestClient_ReceivesFrames(t *testing.T) {
	ts, _ := streamServer(t, false)
	defer ts.Close()

	c, err := New(testConfig(t, wsURL(ts)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if frame := nextFrame(t, c); frame["conn"] != 1 {
		t.Errorf("expected first connection frame, got %v", frame)
	}
	if !c.Connected() {
		t.Error("expected connected")
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-c.Messages(); ok {
		t.Error("expected closed message channel")
	}
}

func TestClient_Reconnects(t *testing.T) {
	ts, conns := streamServer(t, true)
	defer ts.Close()

	c, err := New(testConfig(t, wsURL(ts)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Close()

	if frame := nextFrame(t, c); frame["conn"] != 1 {
		t.Fatalf("expected frame from first connection, got %v", frame)
	}
	if frame := nextFrame(t, c); frame["conn"] != 2 {
		t.Fatalf("expected frame after reconnect, got %v", frame)
	}
	if got := conns.Load(); got != 2 {
		t.Errorf("expected 2 connections, got %d", got)
	}
}

func TestClient_StartFailsWithoutServer(t *testing.T) {
	ts, _ := streamServer(t, false)
	url := wsURL(ts)
	ts.Close()

	c, err := New(testConfig(t, url))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(); err == nil {
		t.Error("expected dial error")
	}
}
