package session

import (
	"sync"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of a conversation. Immutable once created.
type Turn struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// Session holds per-connection conversational state: the ordered turn
// history and the busy flag that serializes pipeline runs. All methods are
// safe for concurrent use.
type Session struct {
	ID string

	mu    sync.Mutex
	busy  bool
	turns []Turn
}

func New(id string) *Session {
	return &Session{ID: id}
}

// TryAcquire flips the busy flag. It returns false when a pipeline run is
// already in flight, in which case the caller must reject the message.
func (s *Session) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *Session) Release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Session) Append(role, content string) {
	s.mu.Lock()
	s.turns = append(s.turns, Turn{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	s.mu.Unlock()
}

// History returns a copy of the turn sequence in chronological order.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// CountByRole reports how many turns a given role has produced.
func (s *Session) CountByRole(role string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.turns {
		if t.Role == role {
			n++
		}
	}
	return n
}
