package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"

	"github.com/psds-microservice/apihub-support/internal/errs"
	"github.com/psds-microservice/apihub-support/internal/model"
)

// Flags are one-shot UI signals. They are handed out once by TakeFlags and cleared.
type Flags struct {
	TicketCreated   bool   `json:"ticket_created,omitempty"`
	CreatedTicketID uint64 `json:"created_ticket_id,omitempty"`
	ModelError      bool   `json:"model_error,omitempty"`
	ShowManualForm  bool   `json:"show_manual_form,omitempty"`
}

func (f Flags) IsZero() bool { return f == Flags{} }

// Session is one user's conversation. Turns on the same session are serialised.
type Session struct {
	ID        string
	CreatedAt time.Time

	turnMu sync.Mutex // held for the whole of a turn

	mu         sync.Mutex
	transcript []model.Turn
	contact    string
	flags      Flags
}

func newSession() *Session {
	return &Session{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
}

// Transcript returns a copy of the turns so far.
func (s *Session) Transcript() []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) append(role model.Role, content string) {
	s.mu.Lock()
	s.transcript = append(s.transcript, model.Turn{Role: role, Content: content})
	s.mu.Unlock()
}

// window returns the last n turns.
func (s *Session) window(n int) []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if n > 0 && len(s.transcript) > n {
		start = len(s.transcript) - n
	}
	out := make([]model.Turn, len(s.transcript)-start)
	copy(out, s.transcript[start:])
	return out
}

// Contact is the requester contact captured earlier in the session, or "".
func (s *Session) Contact() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contact
}

func (s *Session) SetContact(contact string) {
	s.mu.Lock()
	s.contact = contact
	s.mu.Unlock()
}

func (s *Session) raise(f func(*Flags)) {
	s.mu.Lock()
	f(&s.flags)
	s.mu.Unlock()
}

// TakeFlags returns the pending flags and clears them.
func (s *Session) TakeFlags() Flags {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.flags
	s.flags = Flags{}
	return f
}

func (s *Session) reset() {
	s.mu.Lock()
	s.transcript = nil
	s.flags = Flags{}
	s.mu.Unlock()
}

// SessionStore keeps the most recently used sessions in memory.
type SessionStore struct {
	cache *lru.Cache
}

func NewSessionStore(size int) (*SessionStore, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.NewWithEvict(size, func(key, _ interface{}) {
		log.Debug().Interface("session_id", key).Msg("chat: session evicted")
	})
	if err != nil {
		return nil, err
	}
	return &SessionStore{cache: cache}, nil
}

func (s *SessionStore) Create() *Session {
	sess := newSession()
	s.cache.Add(sess.ID, sess)
	return sess
}

func (s *SessionStore) Get(id string) (*Session, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, errs.ErrSessionNotFound
	}
	return v.(*Session), nil
}

// Reset clears the transcript and flags of a session. The captured contact is kept.
func (s *SessionStore) Reset(id string) (*Session, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	sess.turnMu.Lock()
	defer sess.turnMu.Unlock()
	sess.reset()
	return sess, nil
}

func (s *SessionStore) Len() int { return s.cache.Len() }
