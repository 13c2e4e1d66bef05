package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dialHub(t *testing.T, hub *Hub, origin string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d clients (have %d)", want, hub.ClientCount())
}

func TestHubBroadcastReachesClient(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	go hub.Run()

	conn := dialHub(t, hub, "")
	waitForClients(t, hub, 1)

	hub.Broadcast(Event{
		Type:      EventTypeRulesReloaded,
		Timestamp: time.Now(),
		Data:      RulesReloadedEvent{RuleCount: 3},
	})

	// The client also receives its own connection event; read until the
	// broadcast arrives.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var event struct {
			Type EventType       `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &event))
		if event.Type != EventTypeRulesReloaded {
			continue
		}

		var data RulesReloadedEvent
		require.NoError(t, json.Unmarshal(event.Data, &data))
		assert.Equal(t, 3, data.RuleCount)
		return
	}
}

func TestHubClientDisconnect(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	go hub.Run()

	conn := dialHub(t, hub, "")
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHubOriginCheck(t *testing.T) {
	hub := NewHub([]string{"https://ops.example.com"}, zap.NewNop())
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err, "a disallowed origin must be refused")
	if conn != nil {
		conn.Close()
	}
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		resp.Body.Close()
	}

	conn = dialHub(t, hub, "https://ops.example.com")
	waitForClients(t, hub, 1)
	conn.Close()
}

func TestHubStop(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())

	stopped := make(chan struct{})
	go func() {
		hub.Run()
		close(stopped)
	}()

	conn := dialHub(t, hub, "")
	waitForClients(t, hub, 1)

	hub.Stop()
	hub.Stop() // idempotent

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	// The server closes the connection once the hub shuts down.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubBroadcastNeverBlocks(t *testing.T) {
	// No Run loop draining the queue; once full, events must be dropped
	// rather than blocking the caller.
	hub := NewHub(nil, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			hub.Broadcast(Event{Type: EventTypeRunCompleted})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a full queue")
	}
}
