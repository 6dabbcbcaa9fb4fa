package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func setupTestHub(t *testing.T) *Hub {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	hub := NewHub(logger)
	go hub.Run()
	return hub
}

func connectWS(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	dialer := websocket.Dialer{}
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect WebSocket: %v", err)
	}

	cleanup := func() {
		conn.Close()
		server.Close()
	}

	return conn, cleanup
}

func TestHub_ClientConnects(t *testing.T) {
	hub := setupTestHub(t)

	_, cleanup := connectWS(t, hub)
	defer cleanup()

	// Give the hub time to register the client
	time.Sleep(50 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub := setupTestHub(t)

	conn, cleanup := connectWS(t, hub)
	defer cleanup()

	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(IssuanceEvent{
		Type:       "license_issued",
		EventID:    "evt_1",
		LicenseKey: "cs_ABCD...",
		Timestamp:  time.Now().UTC(),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading broadcast: %v", err)
	}

	var event IssuanceEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		t.Fatalf("unmarshaling broadcast: %v", err)
	}
	if event.Type != "license_issued" || event.EventID != "evt_1" {
		t.Errorf("unexpected event: %+v", event)
	}
	if strings.Contains(event.LicenseKey, "ABCDefgh") {
		t.Error("broadcast must not carry full key material")
	}
}

func TestHub_NilHubBroadcastIsSafe(t *testing.T) {
	var hub *Hub
	hub.Broadcast(IssuanceEvent{Type: "license_issued"})
}
