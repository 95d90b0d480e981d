package room

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestManager_DoRunsJob(t *testing.T) {
	manager := NewRoomManager()
	defer manager.Stop()

	ran := false
	err := manager.Do(context.Background(), "room1", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned %v", err)
	}
	if !ran {
		t.Fatal("job did not run")
	}
	if manager.Len() != 1 {
		t.Errorf("Expected 1 room, got %d", manager.Len())
	}
}

func TestManager_DoReturnsJobError(t *testing.T) {
	manager := NewRoomManager()
	defer manager.Stop()

	want := errors.New("rejected")
	err := manager.Do(context.Background(), "room1", func(ctx context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("Expected %v, got %v", want, err)
	}
}

func TestManager_SerializesPerRoom(t *testing.T) {
	manager := NewRoomManager()
	defer manager.Stop()

	var (
		inFlight int32
		overlap  int32
		counter  int
		wg       sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			manager.Do(context.Background(), "room1", func(ctx context.Context) error {
				if atomic.AddInt32(&inFlight, 1) > 1 {
					atomic.StoreInt32(&overlap, 1)
				}
				counter++
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	if overlap != 0 {
		t.Fatal("jobs for the same room overlapped")
	}
	if counter != 50 {
		t.Errorf("Expected 50 jobs, got %d", counter)
	}
}

func TestManager_RoomsRunInParallel(t *testing.T) {
	manager := NewRoomManager()
	defer manager.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	go manager.Do(context.Background(), "slow", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	done := make(chan error, 1)
	go func() {
		done <- manager.Do(context.Background(), "fast", func(ctx context.Context) error { return nil })
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Do returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("a busy room blocked another room")
	}
	close(release)
}

func TestManager_RecoversPanic(t *testing.T) {
	manager := NewRoomManager()
	defer manager.Stop()

	err := manager.Do(context.Background(), "room1", func(ctx context.Context) error { panic("boom") })
	if err == nil {
		t.Fatal("expected an error from a panicking job")
	}

	if err := manager.Do(context.Background(), "room1", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("room should keep working after a panic, got %v", err)
	}
}

func TestManager_RemoveRoomThenReuse(t *testing.T) {
	manager := NewRoomManager()
	defer manager.Stop()

	manager.Do(context.Background(), "room1", func(ctx context.Context) error { return nil })
	manager.RemoveRoom("room1")
	if manager.Len() != 0 {
		t.Fatalf("Expected 0 rooms after removal, got %d", manager.Len())
	}

	if err := manager.Do(context.Background(), "room1", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("Do after RemoveRoom should start a fresh room, got %v", err)
	}
}

func TestManager_DoHonorsCancelledContext(t *testing.T) {
	manager := NewRoomManager()
	defer manager.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	go manager.Do(context.Background(), "room1", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := manager.Do(ctx, "room1", func(ctx context.Context) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline exceeded while the room is busy, got %v", err)
	}
	close(release)
}

func TestManager_IdleRoomIsReleased(t *testing.T) {
	manager := NewRoomManager(WithIdleTimeout(20 * time.Millisecond))
	defer manager.Stop()

	if err := manager.Do(context.Background(), "room1", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("Do returned %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for manager.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("idle room still live, %d rooms", manager.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := manager.Do(context.Background(), "room1", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("Do after idle release should start a fresh room, got %v", err)
	}
}

func TestManager_BusyRoomIsNotReleased(t *testing.T) {
	manager := NewRoomManager(WithIdleTimeout(30 * time.Millisecond))
	defer manager.Stop()

	for i := 0; i < 5; i++ {
		if err := manager.Do(context.Background(), "room1", func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			return nil
		}); err != nil {
			t.Fatalf("Do returned %v", err)
		}
	}
	if manager.Len() != 1 {
		t.Errorf("Expected the busy room to stay live, got %d rooms", manager.Len())
	}
}
