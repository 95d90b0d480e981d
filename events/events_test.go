package events

import (
	"context"
	"testing"
)

type MockPublisher struct {
	got []Event
}

func (m *MockPublisher) Publish(ctx context.Context, e Event) {
	m.got = append(m.got, e)
}

func TestMulti_FansOutInOrder(t *testing.T) {
	a, b := &MockPublisher{}, &MockPublisher{}
	multi := Multi{a, LogPublisher{}, b, Nop{}}

	multi.Publish(context.Background(), Event{Kind: GameStarted, RoomID: "r1"})
	multi.Publish(context.Background(), Event{Kind: StateChanged, RoomID: "r1"})

	for _, p := range []*MockPublisher{a, b} {
		if len(p.got) != 2 {
			t.Fatalf("Expected 2 events, got %d", len(p.got))
		}
		if p.got[0].Kind != GameStarted || p.got[1].Kind != StateChanged {
			t.Errorf("events out of order: %+v", p.got)
		}
	}
}
