package compliance

import (
	"sync"
	"time"

	"tickex/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// session is the per-user compliance state. Sessions are never shared
// across users; each one carries its own lock.
type session struct {
	mu sync.Mutex

	subjectID    uuid.UUID
	state        domain.SessionState
	currentTier  domain.Tier
	requiredTier domain.Tier
	amount       decimal.Decimal
	lastResult   *domain.VerificationResult
	disclosure   *domain.FeeDisclosure
	warnings     []string
	errs         []string
	blockReason  string
	updatedAt    time.Time

	subscribers map[chan domain.SessionSnapshot]struct{}
}

func newSession(subjectID uuid.UUID) *session {
	return &session{
		subjectID:   subjectID,
		state:       domain.StateUnverified,
		currentTier: domain.TierNone,
		amount:      decimal.Zero,
		updatedAt:   time.Now().UTC(),
		subscribers: make(map[chan domain.SessionSnapshot]struct{}),
	}
}

// snapshotLocked builds the published view. Caller holds s.mu.
func (s *session) snapshotLocked() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		SubjectID:    s.subjectID,
		State:        s.state,
		CurrentTier:  s.currentTier,
		RequiredTier: s.requiredTier,
		Amount:       s.amount,
		BlockReason:  s.blockReason,
		UpdatedAt:    s.updatedAt,
	}
	if s.lastResult != nil {
		res := *s.lastResult
		snap.LastResult = &res
	}
	if s.disclosure != nil {
		d := *s.disclosure
		snap.Disclosure = &d
	}
	snap.Warnings = append(snap.Warnings, s.warnings...)
	snap.Errors = append(snap.Errors, s.errs...)
	return snap
}

// publishLocked fans the current snapshot out to observers. Sends are
// non-blocking; a slow observer drops updates rather than stalling the
// state machine. Caller holds s.mu.
func (s *session) publishLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *session) touchLocked() {
	s.updatedAt = time.Now().UTC()
}

func (s *session) subscribe() chan domain.SessionSnapshot {
	ch := make(chan domain.SessionSnapshot, 8)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()
	return ch
}

func (s *session) unsubscribe(ch chan domain.SessionSnapshot) {
	s.mu.Lock()
	delete(s.subscribers, ch)
	s.mu.Unlock()
	close(ch)
}

// sessionStore hands out one session per subject.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[uuid.UUID]*session)}
}

func (st *sessionStore) getOrCreate(subjectID uuid.UUID) *session {
	st.mu.RLock()
	s, ok := st.sessions[subjectID]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[subjectID]; ok {
		return s
	}
	s = newSession(subjectID)
	st.sessions[subjectID] = s
	return s
}

func (st *sessionStore) get(subjectID uuid.UUID) (*session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[subjectID]
	return s, ok
}
