// session/session.go
package session

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wfunc/partygame/network"
)

const outboxSize = 64

type outbound struct {
	msgID uint16
	data  []byte
}

// Session is one websocket client. PlayerID comes from the upgrade request;
// RoomID is the room it currently receives events for.
type Session struct {
	ID         string
	Conn       network.Connection
	PlayerID   string
	CreatedAt  time.Time
	lastActive time.Time
	roomID     string
	limiter    *rate.Limiter
	outbox     chan outbound
	done       chan struct{}
	closeOnce  sync.Once
	mutex      sync.RWMutex
}

// NewSession allows actionRate game actions per second with bursts of
// actionBurst. A zero rate disables the limit.
func NewSession(id, playerID string, conn network.Connection, actionRate float64, actionBurst int) *Session {
	now := time.Now()
	limit := rate.Inf
	if actionRate > 0 {
		limit = rate.Limit(actionRate)
	}
	return &Session{
		ID:         id,
		Conn:       conn,
		PlayerID:   playerID,
		CreatedAt:  now,
		lastActive: now,
		limiter:    rate.NewLimiter(limit, max(actionBurst, 1)),
		outbox:     make(chan outbound, outboxSize),
		done:       make(chan struct{}),
	}
}

// Send writes directly to the connection.
func (s *Session) Send(msgID uint16, data []byte) error {
	return s.Conn.Send(msgID, data)
}

// Queue hands a message to WriteLoop without blocking. It reports false when
// the session is closed or its buffer is full, in which case the message is
// dropped.
func (s *Session) Queue(msgID uint16, data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.outbox <- outbound{msgID: msgID, data: data}:
		return true
	default:
		return false
	}
}

// WriteLoop sends queued messages until the session is closed. A failed
// write closes the session.
func (s *Session) WriteLoop() {
	for {
		select {
		case m := <-s.outbox:
			if err := s.Conn.Send(m.msgID, m.data); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// Touch records client activity, such as a heartbeat.
func (s *Session) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastActive = time.Now()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

// Subscribe switches the session to roomID's events. An empty id unsubscribes.
func (s *Session) Subscribe(roomID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roomID = roomID
}

func (s *Session) RoomID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomID
}

// AllowAction reports whether another game action fits in the rate limit.
func (s *Session) AllowAction() bool {
	return s.limiter.Allow()
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) GetByPlayerID(playerID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.PlayerID == playerID {
			result = append(result, session)
		}
	}
	return result
}

// InRoom returns the sessions subscribed to roomID.
func (m *Manager) InRoom(roomID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.RoomID() == roomID {
			result = append(result, session)
		}
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every connection; their read loops then remove them.
func (m *Manager) CloseAll() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, session := range m.sessions {
		session.Close()
	}
}
