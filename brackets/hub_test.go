package brackets

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastEventToRoom(t *testing.T) {
	hub := NewHub(nil)
	done := make(chan struct{})
	defer close(done)
	go hub.Run(done)

	room := RoomForTournament("spring-open")
	assert.Equal(t, "tournament_spring-open", room)

	member := &Client{Hub: hub, Send: make(chan []byte, 4), Room: room}
	outsider := &Client{Hub: hub, Send: make(chan []byte, 4), Room: RoomForTournament("other")}
	hub.Register <- member
	hub.Register <- outsider
	require.Eventually(t, func() bool { return hub.ClientCount(room) == 1 }, time.Second, 5*time.Millisecond)

	hub.BroadcastEvent(room, EventRoundPaired, map[string]int{"round": 3})

	select {
	case raw := <-member.Send:
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]int `json:"payload"`
			RoomID  string         `json:"room_id"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, EventRoundPaired, msg.Type)
		assert.Equal(t, 3, msg.Payload["round"])
		assert.Equal(t, room, msg.RoomID)
	case <-time.After(time.Second):
		t.Fatal("member did not receive the event")
	}
	assert.Empty(t, outsider.Send)

	hub.Unregister <- member
	require.Eventually(t, func() bool { return hub.ClientCount(room) == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-member.Send
	assert.False(t, open, "send channel is closed on unregister")
}

func TestHub_BroadcastToEmptyRoomIsNoop(t *testing.T) {
	hub := NewHub(nil)
	assert.NotPanics(t, func() {
		hub.BroadcastEvent(RoomForTournament("nobody"), EventResultReported, nil)
	})
}

func TestClient_SendEvent(t *testing.T) {
	hub := NewHub(nil)
	client := &Client{Hub: hub, Send: make(chan []byte, 1), Room: RoomForTournament("spring-open")}

	require.True(t, client.SendEvent(EventSnapshot, map[string]int{"current_round": 2}))
	assert.False(t, client.SendEvent(EventSnapshot, nil), "buffer is full")

	var msg WebSocketMessage
	require.NoError(t, json.Unmarshal(<-client.Send, &msg))
	assert.Equal(t, EventSnapshot, msg.Type)
	assert.Equal(t, "tournament_spring-open", msg.RoomID)

	client.IsClosed = true
	assert.False(t, client.SendEvent(EventSnapshot, nil))
}

func TestHub_StopReleasesClients(t *testing.T) {
	hub := NewHub(nil)
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		hub.Run(done)
		close(stopped)
	}()

	room := RoomForTournament("spring-open")
	client := &Client{Hub: hub, Send: make(chan []byte, 1), Room: room}
	require.True(t, hub.Join(client))
	require.Eventually(t, func() bool { return hub.ClientCount(room) == 1 }, time.Second, 5*time.Millisecond)

	close(done)
	<-stopped

	_, open := <-client.Send
	assert.False(t, open, "stopping the hub closes client queues")
	assert.Zero(t, hub.ClientCount(room))

	left := make(chan struct{})
	go func() {
		hub.Leave(client)
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("Leave blocked after the hub stopped")
	}

	assert.False(t, hub.Join(&Client{Hub: hub, Send: make(chan []byte, 1), Room: room}))
}
