package planner

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rogersf/strips-engine/internal/domain"
	"github.com/rogersf/strips-engine/internal/heuristic"
	"github.com/rogersf/strips-engine/internal/search"
	"github.com/rogersf/strips-engine/internal/space"
	"github.com/rogersf/strips-engine/internal/strips"
)

// Session is a resumable MPP search. Each Next call continues from the
// retained frontier and visited table and yields the next-best plan.
type Session struct {
	ID          string
	ProblemName string
	Direction   domain.Direction
	Heuristic   string
	CreatedAt   int64

	lastUsed atomic.Int64

	mu        sync.Mutex
	space     space.Space
	mpp       *search.MPP[strips.State, *strips.Action]
	yielded   int
	exhausted bool
}

// NextResult is one step of a session. Found is false once no further plan
// exists.
type NextResult struct {
	SessionID string
	Index     int
	Found     bool
	Plan      strips.Plan
	Stats     search.Stats
}

// LastUsed reports when the session was last opened or advanced.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) next(ctx context.Context) (*NextResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exhausted {
		return nil, domain.ErrSessionExhausted.Detail("%s after %d plans", s.ID, s.yielded)
	}

	path, found, err := s.mpp.Next(ctx)
	if err != nil {
		return nil, err
	}
	res := &NextResult{SessionID: s.ID, Index: s.yielded, Found: found, Stats: s.mpp.Stats()}
	if !found {
		s.exhausted = true
		return res, nil
	}
	res.Plan = s.space.Plan(path)
	s.yielded++
	return res, nil
}

// SessionManager creates, tracks, and closes planning sessions.
type SessionManager struct {
	maxSessions   int
	maxExpansions int
	logger        *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessionManager creates a manager holding at most maxSessions open
// sessions (0 for no cap). maxExpansions bounds each session's total work.
func NewSessionManager(maxSessions, maxExpansions int, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		maxSessions:   maxSessions,
		maxExpansions: maxExpansions,
		logger:        logger,
		sessions:      make(map[string]*Session),
		now:           time.Now,
	}
}

// Open starts a session over p. Nothing is searched until Next.
func (m *SessionManager) Open(p *strips.Problem, dir domain.Direction, heuristicName string) (string, error) {
	if p == nil {
		return "", domain.ErrProblemFile.Detail("no problem given")
	}
	dir, err := domain.ParseDirection(string(dir))
	if err != nil {
		return "", err
	}
	if heuristicName == "" {
		heuristicName = heuristic.Default
	}
	h, err := heuristic.Lookup(heuristicName, p.Domain())
	if err != nil {
		return "", err
	}
	sp, err := space.New(dir, p, h)
	if err != nil {
		return "", err
	}

	now := m.now()
	sess := &Session{
		ID:          uuid.New().String(),
		ProblemName: p.Name(),
		Direction:   dir,
		Heuristic:   heuristicName,
		CreatedAt:   now.Unix(),
		space:       sp,
		mpp:         search.NewMPP[strips.State, *strips.Action](sp, search.WithMaxExpansions(m.maxExpansions)),
	}
	sess.lastUsed.Store(now.UnixNano())

	m.mu.Lock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return "", domain.ErrSessionLimit.Detail("%d open", m.maxSessions)
	}
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.logger.Info("session opened", "session_id", sess.ID, "problem", sess.ProblemName, "direction", dir)
	return sess.ID, nil
}

// Next yields the session's next-best plan. After a result with Found false,
// further calls return ErrSessionExhausted. A cancelled call can be retried.
func (m *SessionManager) Next(ctx context.Context, sessionID string) (*NextResult, error) {
	sess, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	sess.lastUsed.Store(m.now().UnixNano())
	res, err := sess.next(ctx)
	sess.lastUsed.Store(m.now().UnixNano())
	if err != nil {
		return nil, err
	}
	m.logger.Debug("session next",
		"session_id", sessionID,
		"index", res.Index,
		"found", res.Found,
		"cost", res.Plan.Cost,
		"expanded", res.Stats.Expanded,
	)
	return res, nil
}

// Get returns a session by ID, or ErrSessionNotFound.
func (m *SessionManager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

// Close drops a session by ID, or returns ErrSessionNotFound.
func (m *SessionManager) Close(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(m.sessions, sessionID)
	return nil
}

// CloseAll drops every tracked session and returns how many were open.
func (m *SessionManager) CloseAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.sessions)
	m.sessions = make(map[string]*Session)
	return n
}

// Prune closes sessions not used for longer than maxIdle and returns how many
// were closed. A non-positive maxIdle closes nothing.
func (m *SessionManager) Prune(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-maxIdle).UnixNano()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sess := range m.sessions {
		if sess.lastUsed.Load() < cutoff {
			delete(m.sessions, id)
			removed++
			m.logger.Info("session expired", "session_id", id, "idle", maxIdle)
		}
	}
	return removed
}

// Count returns the number of open sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
