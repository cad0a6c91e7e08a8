package guard

import (
	"sync"
	"time"

	"github.com/rogersf/strips-engine/internal/domain"
)

// GuardConfig holds rate and session limits. Zero disables a limit.
type GuardConfig struct {
	MaxSessions        int
	RateLimitPerMinute int
}

// SessionCounter reports how many planning sessions are open.
type SessionCounter interface {
	Count() int
}

// Guard coordinates rate and session-cap checks for API clients.
type Guard struct {
	Config   GuardConfig
	Sessions SessionCounter

	mu         sync.Mutex
	rateCounts map[string]*rateBucket
	now        func() int64
}

type rateBucket struct {
	count       int
	windowStart int64
}

// NewGuard creates a Guard. sessions may be nil when no session cap applies.
func NewGuard(sessions SessionCounter, cfg GuardConfig) *Guard {
	return &Guard{
		Config:     cfg,
		Sessions:   sessions,
		rateCounts: make(map[string]*rateBucket),
		now:        func() int64 { return time.Now().Unix() },
	}
}

// CheckAll runs the rate limit for client and, when opening is set, the
// session cap. It short-circuits on the first error.
func (g *Guard) CheckAll(client string, opening bool) error {
	if err := g.CheckRateLimit(client); err != nil {
		return err
	}
	if opening {
		return g.CheckSessionCap()
	}
	return nil
}

// CheckRateLimit enforces a per-client sliding window rate limit.
// The window is 60 seconds. If the count exceeds the configured limit,
// ErrRateLimitExceeded is returned.
func (g *Guard) CheckRateLimit(client string) error {
	if g.Config.RateLimitPerMinute <= 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	bucket, ok := g.rateCounts[client]
	if !ok {
		g.rateCounts[client] = &rateBucket{count: 1, windowStart: now}
		return nil
	}

	if now-bucket.windowStart > 60 {
		bucket.count = 1
		bucket.windowStart = now
		return nil
	}

	if bucket.count >= g.Config.RateLimitPerMinute {
		return domain.ErrRateLimitExceeded
	}

	bucket.count++
	return nil
}

// CheckSessionCap returns ErrSessionLimit once MaxSessions sessions are open.
func (g *Guard) CheckSessionCap() error {
	if g.Sessions == nil || g.Config.MaxSessions <= 0 {
		return nil
	}
	if n := g.Sessions.Count(); n >= g.Config.MaxSessions {
		return domain.ErrSessionLimit.Detail("%d open", n)
	}
	return nil
}

// Prune drops rate buckets whose window ended, bounding memory for many
// distinct clients.
func (g *Guard) Prune() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	removed := 0
	for client, bucket := range g.rateCounts {
		if now-bucket.windowStart > 60 {
			delete(g.rateCounts, client)
			removed++
		}
	}
	return removed
}
