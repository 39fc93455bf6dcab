package event

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mentiond/mentiond/pkg/models"
)

func newWSTestServer(t *testing.T, hub *Hub, snapshot func() Snapshot) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/ws", NewWSHandler(hub, snapshot).Handle)
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return envelope
}

func TestWS_InitialSnapshotOnSubscribe(t *testing.T) {
	hub := NewHub()
	snapshot := func() Snapshot {
		return Snapshot{
			Mentions: []models.Mention{
				{Timestamp: time.Now().Format(time.RFC3339), Channel: "eng", User: "Bob", ClientID: "host-A"},
				{Timestamp: time.Now().Format(time.RFC3339), Channel: "ops", User: "Carol", ClientID: "host-B"},
			},
			Stats:           map[string]models.StatsSnapshot{},
			MessagesPerHour: map[int]int{},
			ActiveClients:   []string{"host-A"},
		}
	}
	_, url := newWSTestServer(t, hub, snapshot)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	envelope := readEnvelope(t, conn)
	var msgType string
	if err := json.Unmarshal(envelope["type"], &msgType); err != nil || msgType != TypeInitialData {
		t.Fatalf("first message type = %q, want %q", msgType, TypeInitialData)
	}
	var snap Snapshot
	if err := json.Unmarshal(envelope["data"], &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if len(snap.Mentions) != 2 {
		t.Fatalf("snapshot mentions = %d, want 2", len(snap.Mentions))
	}
}

func TestWS_BroadcastAndEcho(t *testing.T) {
	hub := NewHub()
	empty := func() Snapshot {
		return Snapshot{Stats: map[string]models.StatsSnapshot{}, MessagesPerHour: map[int]int{}}
	}
	_, url := newWSTestServer(t, hub, empty)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Drain the initial snapshot.
	readEnvelope(t, conn)

	// Registration races the dial returning; wait for the hub to see us.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Count() != 1 {
		t.Fatalf("hub never registered the connection")
	}

	hub.Broadcast(NewMentionMessage(models.Mention{
		Timestamp: time.Now().Format(time.RFC3339),
		Channel:   "eng", User: "Bob", Text: "@you hi", ClientID: "host-A",
	}))

	envelope := readEnvelope(t, conn)
	var msgType string
	if err := json.Unmarshal(envelope["type"], &msgType); err != nil || msgType != TypeNewMention {
		t.Fatalf("broadcast type = %q, want %q", msgType, TypeNewMention)
	}

	// Keepalive contract: whatever the client sends comes straight back.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping-ping")); err != nil {
		t.Fatalf("write keepalive: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, echoed, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read echo: %v", err)
	}
	if string(echoed) != "ping-ping" {
		t.Fatalf("echo = %q, want %q", echoed, "ping-ping")
	}
}

func TestWS_DisconnectPrunesConnection(t *testing.T) {
	hub := NewHub()
	empty := func() Snapshot { return Snapshot{} }
	_, url := newWSTestServer(t, hub, empty)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readEnvelope(t, conn)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Count() != 0 {
		t.Fatalf("hub still tracks %d connections after disconnect", hub.Count())
	}
}
