package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendify/notify-agent/internal/modules/notification/domain"
)

func TestServeWs_EndToEndBroadcast(t *testing.T) {
	hub := NewHub(nil, nil)
	go hub.Run()
	defer hub.Stop()

	hub.Broadcast([]byte(`{"type":"snapshot","unread":0,"notifications":[]}`))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, uuid.New())
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, body, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)

	var frame domain.Snapshot
	require.NoError(t, json.Unmarshal(body, &frame))
	assert.Equal(t, "snapshot", frame.Type)

	hub.Broadcast([]byte("next"))
	_, body, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "next", string(body))
}

func TestServeWs_HubStopClosesConnection(t *testing.T) {
	hub := NewHub(nil, nil)
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, uuid.New())
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Round-trip one payload so the client is known to be registered.
	hub.Broadcast([]byte("ready"))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, body, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "ready", string(body))

	hub.Stop()
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestServeWs_UpgradeFailure(t *testing.T) {
	hub := NewHub(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()

	ServeWs(hub, w, req, uuid.New())

	// Upgrade fails for normal HTTP request and upgrader writes bad request.
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
