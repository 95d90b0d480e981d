package broadcast

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/partygame/events"
	"github.com/wfunc/partygame/logger"
	"github.com/wfunc/partygame/network"
	"github.com/wfunc/partygame/session"
)

func init() {
	logger.Init("error")
}

type sentPacket struct {
	msgID uint16
	data  []byte
}

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	mu   sync.Mutex
	sent []sentPacket
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentPacket{msgID: msgID, data: data})
	return nil
}
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func (m *MockConnection) packets() []sentPacket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentPacket(nil), m.sent...)
}

func (m *MockConnection) waitFor(t *testing.T, n int) []sentPacket {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		got := m.packets()
		if len(got) >= n {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d packets, got %d", n, len(got))
		}
		time.Sleep(time.Millisecond)
	}
}

func newSession(t *testing.T, sm *session.Manager, id, playerID, roomID string) *MockConnection {
	t.Helper()
	conn := &MockConnection{}
	sess := session.NewSession(id, playerID, conn, 0, 0)
	sess.Subscribe(roomID)
	sm.Add(sess)
	go sess.WriteLoop()
	t.Cleanup(func() { sess.Close() })
	return conn
}

func TestRoomBroadcaster_PublishToSubscribers(t *testing.T) {
	sm := session.NewManager()
	alice := newSession(t, sm, "s1", "alice", "room-1")
	bob := newSession(t, sm, "s2", "bob", "room-2")

	b := NewRoomBroadcaster(sm)
	b.Publish(context.Background(), events.Event{
		Kind:    events.PhaseChanged,
		RoomID:  "room-1",
		Phase:   "round_end",
		Round:   2,
		Payload: map[string]any{"from": "playing"},
	})

	got := alice.waitFor(t, 1)
	if got[0].msgID != network.MsgTypeRoomEvent {
		t.Fatalf("Expected message %d, got %d", network.MsgTypeRoomEvent, got[0].msgID)
	}
	var e events.Event
	if err := json.Unmarshal(got[0].data, &e); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if e.Kind != events.PhaseChanged || e.Phase != "round_end" || e.Round != 2 || e.Payload["from"] != "playing" {
		t.Errorf("unexpected event %+v", e)
	}

	time.Sleep(10 * time.Millisecond)
	if n := len(bob.packets()); n != 0 {
		t.Errorf("Expected nothing for another room, got %d packets", n)
	}
}

func TestRoomBroadcaster_BroadcastToPlayers(t *testing.T) {
	sm := session.NewManager()
	alice1 := newSession(t, sm, "s1", "alice", "")
	alice2 := newSession(t, sm, "s2", "alice", "")
	bob := newSession(t, sm, "s3", "bob", "")

	b := NewRoomBroadcaster(sm)
	if n := b.BroadcastToPlayers([]string{"alice", "carol"}, network.MsgTypeError, []byte(`{}`)); n != 2 {
		t.Fatalf("Expected 2 deliveries, got %d", n)
	}
	alice1.waitFor(t, 1)
	alice2.waitFor(t, 1)

	time.Sleep(10 * time.Millisecond)
	if n := len(bob.packets()); n != 0 {
		t.Errorf("Expected nothing for bob, got %d packets", n)
	}
}

func TestRoomBroadcaster_ClosedSessionNotCounted(t *testing.T) {
	sm := session.NewManager()
	conn := &MockConnection{}
	sess := session.NewSession("s1", "alice", conn, 0, 0)
	sess.Subscribe("room-1")
	sm.Add(sess)
	sess.Close()

	b := NewRoomBroadcaster(sm)
	if n := b.BroadcastToRoom("room-1", network.MsgTypeRoomEvent, []byte(`{}`)); n != 0 {
		t.Errorf("Expected 0 deliveries to a closed session, got %d", n)
	}
}
