package push

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"core/models"

	authModels "auth/models"
	authUtils "auth/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	t.Setenv("JWT_SECRET", "hub-test-secret")

	gin.SetMode(gin.TestMode)
	hub := NewHub()
	go hub.Run()

	r := gin.New()
	r.GET("/ws", hub.HandleConnection)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, username string) *websocket.Conn {
	t.Helper()
	token, err := authUtils.GenerateToken(authModels.User{ID: uuid.New(), Username: username})
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSession(t *testing.T, hub *Hub, username string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.SessionCount(username) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session for %s never registered", username)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandshakeRejectsBadToken(t *testing.T) {
	_, server := newTestServer(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=garbage"
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("handshake with a bad token should fail")
	}
}

func TestMatchUpdateRoutedToUser(t *testing.T) {
	hub, server := newTestServer(t)
	conn := dial(t, server, "mang0")
	waitForSession(t, hub, "mang0")

	hub.SendMatchUpdate("Mang0", models.MatchUpdateEvent{
		MatchID: "m1",
		Status:  models.MatchEventStarted,
		Player1: "mang0",
		Player2: "zain",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var event models.MatchUpdateEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event.Queue != models.QueueMatchUpdates {
		t.Fatalf("queue discriminator = %q, want %q", event.Queue, models.QueueMatchUpdates)
	}
	if event.MatchID != "m1" || event.Status != models.MatchEventStarted {
		t.Fatalf("unexpected envelope: %+v", event)
	}
}

func TestInviteRoutedOnInvitesQueue(t *testing.T) {
	hub, server := newTestServer(t)
	conn := dial(t, server, "zain")
	waitForSession(t, hub, "zain")

	hub.SendInvite("zain", models.InviteEvent{
		InviteID: "inv-1",
		From:     "mang0",
		Status:   models.InviteStatusPending,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var event models.InviteEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event.Queue != models.QueueInvites || event.From != "mang0" || event.Status != models.InviteStatusPending {
		t.Fatalf("unexpected envelope: %+v", event)
	}
}

func TestDeliveryPreservesOrder(t *testing.T) {
	hub, server := newTestServer(t)
	conn := dial(t, server, "ibdw")
	waitForSession(t, hub, "ibdw")

	statuses := []string{
		models.MatchEventStarted,
		models.MatchEventAwaitingConfirmation,
		models.MatchEventRematchOffered,
	}
	for _, status := range statuses {
		hub.SendMatchUpdate("ibdw", models.MatchUpdateEvent{MatchID: "m1", Status: status})
	}

	for _, want := range statuses {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var event models.MatchUpdateEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if event.Status != want {
			t.Fatalf("out of order: got %s, want %s", event.Status, want)
		}
	}
}

func TestSendToOfflineUserIsNoop(t *testing.T) {
	hub, _ := newTestServer(t)

	// Must not block or panic when nobody is connected.
	hub.SendMatchUpdate("ghost", models.MatchUpdateEvent{MatchID: "m1", Status: models.MatchEventStarted})
	if hub.SessionCount("ghost") != 0 {
		t.Fatal("no session should exist for an offline user")
	}
}
