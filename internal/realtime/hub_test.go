package realtime

import (
	"encoding/json"
	"testing"
)

func newTestClient(hub *Hub, room string, buffer int) *Client {
	return &Client{
		Hub:    hub,
		Send:   make(chan []byte, buffer),
		Room:   room,
		UserID: "user-1",
	}
}

func TestRoomKey(t *testing.T) {
	if got := RoomKey("user-1", "domain-9"); got != "user-1:domain-9" {
		t.Errorf("RoomKey = %q", got)
	}
}

func TestEmitReachesRoomMembers(t *testing.T) {
	hub := NewHub()
	room := RoomKey("user-1", "domain-9")
	c := newTestClient(hub, room, 4)
	hub.Register(c)

	hub.Emit(room, "visuals:ready", map[string]string{"postId": "post-1"})

	select {
	case msg := <-c.Send:
		var envelope struct {
			Event   string            `json:"event"`
			Payload map[string]string `json:"payload"`
		}
		if err := json.Unmarshal(msg, &envelope); err != nil {
			t.Fatalf("bad envelope: %v", err)
		}
		if envelope.Event != "visuals:ready" || envelope.Payload["postId"] != "post-1" {
			t.Errorf("unexpected envelope %+v", envelope)
		}
	default:
		t.Fatal("registered client received nothing")
	}
}

func TestEmitIsScopedToRoom(t *testing.T) {
	hub := NewHub()
	member := newTestClient(hub, RoomKey("user-1", "domain-9"), 4)
	stranger := newTestClient(hub, RoomKey("user-2", "domain-9"), 4)
	hub.Register(member)
	hub.Register(stranger)

	hub.Emit(member.Room, "visuals:ready", nil)

	if len(member.Send) != 1 {
		t.Error("room member must receive the event")
	}
	if len(stranger.Send) != 0 {
		t.Error("other rooms must not receive the event")
	}
}

func TestEmitToEmptyRoomIsNoop(t *testing.T) {
	hub := NewHub()
	hub.Emit("nobody:here", "visuals:ready", nil) // must not panic
	if hub.RoomSize("nobody:here") != 0 {
		t.Error("emitting must not create rooms")
	}
}

func TestUnregisterClosesAndPrunes(t *testing.T) {
	hub := NewHub()
	room := RoomKey("user-1", "domain-9")
	c := newTestClient(hub, room, 4)
	hub.Register(c)
	if hub.RoomSize(room) != 1 {
		t.Fatal("client not registered")
	}

	hub.Unregister(c)
	if hub.RoomSize(room) != 0 {
		t.Error("room must be empty after unregister")
	}
	if _, open := <-c.Send; open {
		t.Error("send channel must be closed on unregister")
	}

	// A second unregister of the same client must be harmless.
	hub.Unregister(c)
}

func TestEmitDropsSlowClients(t *testing.T) {
	hub := NewHub()
	room := RoomKey("user-1", "domain-9")
	slow := newTestClient(hub, room, 1)
	hub.Register(slow)

	hub.Emit(room, "visuals:ready", nil) // fills the buffer
	hub.Emit(room, "visuals:ready", nil) // overflows, client dropped

	if hub.RoomSize(room) != 0 {
		t.Error("a client with a full send buffer must be dropped")
	}
}
