package timer

import (
	"sync"
	"time"
)

// Scheduler keeps at most one pending deadline per room on top of a
// TimerManager.
type Scheduler struct {
	timers *TimerManager
	mu     sync.Mutex
	byRoom map[string]int64
}

func NewScheduler(timers *TimerManager) *Scheduler {
	return &Scheduler{timers: timers, byRoom: make(map[string]int64)}
}

// Schedule arms fn for roomID at the given time, replacing any deadline the
// room already had.
func (s *Scheduler) Schedule(roomID string, at time.Time, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byRoom[roomID]; ok {
		s.timers.RemoveTimer(old)
	}

	var id int64
	id = s.timers.AddTimerAt(at, func() {
		s.mu.Lock()
		if s.byRoom[roomID] == id {
			delete(s.byRoom, roomID)
		}
		s.mu.Unlock()
		fn()
	})
	s.byRoom[roomID] = id
}

// Cancel drops roomID's pending deadline, if any.
func (s *Scheduler) Cancel(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byRoom[roomID]; ok {
		s.timers.RemoveTimer(id)
		delete(s.byRoom, roomID)
	}
}

// Pending reports whether roomID has a deadline armed.
func (s *Scheduler) Pending(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byRoom[roomID]
	return ok
}

func (s *Scheduler) Stop() {
	s.timers.Stop()
}
