// room/room.go
package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/partygame/logger"
)

var errRoomClosed = errors.New("room closed")

type job struct {
	ctx    context.Context
	fn     func(context.Context) error
	result chan error
}

// Room 是房间的串行执行器. Every job submitted for one room runs on the
// room's loop goroutine, one at a time, in arrival order.
type Room struct {
	ID        string
	inbox     chan job
	closeChan chan struct{}
	closeOnce sync.Once
	idleAfter time.Duration
	onIdle    func(*Room)
}

// NewRoom 创建一个新房间并启动主循环. A room with idleAfter > 0 closes
// itself once no job has arrived for that long and then calls onIdle.
func NewRoom(id string, idleAfter time.Duration, onIdle func(*Room)) *Room {
	r := &Room{
		ID:        id,
		inbox:     make(chan job),
		closeChan: make(chan struct{}),
		idleAfter: idleAfter,
		onIdle:    onIdle,
	}
	go r.loop()
	return r
}

// loop 是房间的主循环
func (r *Room) loop() {
	var idle <-chan time.Time
	var idleTimer *time.Timer
	if r.idleAfter > 0 {
		idleTimer = time.NewTimer(r.idleAfter)
		defer idleTimer.Stop()
		idle = idleTimer.C
	}

	for {
		select {
		case j := <-r.inbox:
			select {
			case <-r.closeChan:
				j.result <- errRoomClosed
				return
			default:
			}
			j.result <- r.run(j)
			if idleTimer != nil {
				idleTimer.Reset(r.idleAfter)
			}
		case <-idle:
			r.Close()
			if r.onIdle != nil {
				r.onIdle(r)
			}
			return
		case <-r.closeChan:
			return
		}
	}
}

func (r *Room) run(j job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Log.Errorw("room job panicked", "room_id", r.ID, "panic", p)
			err = fmt.Errorf("room %s: job panicked: %v", r.ID, p)
		}
	}()
	return j.fn(j.ctx)
}

// submit hands fn to the loop and waits for its result. It returns
// errRoomClosed if the room shut down before fn started.
func (r *Room) submit(ctx context.Context, fn func(context.Context) error) error {
	j := job{ctx: ctx, fn: fn, result: make(chan error, 1)}
	select {
	case r.inbox <- j:
	case <-r.closeChan:
		return errRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-j.result
}

// Close 关闭房间，停止主循环
func (r *Room) Close() {
	r.closeOnce.Do(func() { close(r.closeChan) })
}

// --- 房间管理器 ---

// Manager 管理所有房间
type Manager struct {
	rooms     map[string]*Room
	mutex     sync.Mutex
	idleAfter time.Duration
}

var _ Runner = (*Manager)(nil)

type Option func(*Manager)

// WithIdleTimeout closes a room's loop after d without jobs. The next job
// for that room starts a fresh loop.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.idleAfter = d }
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(opts ...Option) *Manager {
	m := &Manager{
		rooms: make(map[string]*Room),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Do runs fn on roomID's loop, creating the room on first use. Calls for
// the same room never overlap; calls for different rooms run in parallel.
func (m *Manager) Do(ctx context.Context, roomID string, fn func(context.Context) error) error {
	for {
		r := m.getOrCreate(roomID)
		err := r.submit(ctx, fn)
		if !errors.Is(err, errRoomClosed) {
			return err
		}
		m.forget(roomID, r)
	}
}

func (m *Manager) getOrCreate(id string) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if r, ok := m.rooms[id]; ok {
		return r
	}
	r := NewRoom(id, m.idleAfter, func(r *Room) { m.forget(r.ID, r) })
	m.rooms[id] = r
	return r
}

// forget drops r from the map unless it was already replaced.
func (m *Manager) forget(id string, r *Room) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.rooms[id] == r {
		delete(m.rooms, id)
	}
}

// RemoveRoom 从管理器中移除并关闭一个房间. Call it from outside the room's
// jobs; a job that is already queued starts a fresh loop.
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if r, exists := m.rooms[id]; exists {
		r.Close()
		delete(m.rooms, id)
	}
}

// Len returns the number of live rooms.
func (m *Manager) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.rooms)
}

// Stop closes every room.
func (m *Manager) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for id, r := range m.rooms {
		r.Close()
		delete(m.rooms, id)
	}
}
