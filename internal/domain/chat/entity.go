package chat

import "sync"

// Role of a message turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one ordered turn of a document-scoped conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session holds the append-only message sequence for one analysis run.
// Sends are serialized: Begin fails while a prior send is outstanding, and
// the caller is expected to drop the new send rather than queue it.
type Session struct {
	mu       sync.Mutex
	inflight bool
	messages []Message
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}

// Begin marks a send as in flight. It returns false when another send is
// already outstanding.
func (s *Session) Begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight {
		return false
	}
	s.inflight = true
	return true
}

// End releases the in-flight marker.
func (s *Session) End() {
	s.mu.Lock()
	s.inflight = false
	s.mu.Unlock()
}

// Append adds a turn at the end of the sequence.
func (s *Session) Append(m Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
}

// History returns a copy of the turns in original order.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
