package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/classbridge/report-api/internal/models"
)

// ScopeGuard serialises report builds per owner. When an owner (a
// user session) starts a build for a new scope, the guard cancels the
// context of any build the owner still has in flight, so a superseded
// build stops fetching instead of finishing and clobbering the fresh
// one.
type ScopeGuard struct {
	mu       sync.Mutex
	sessions map[string]*scopeSession
	logger   *zap.Logger
}

type scopeSession struct {
	key    string
	cancel context.CancelFunc
}

// NewScopeGuard constructs a ScopeGuard.
func NewScopeGuard(logger *zap.Logger) *ScopeGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScopeGuard{sessions: make(map[string]*scopeSession), logger: logger}
}

// ScopeToken identifies one acquired build. Current reports whether
// the token still names the owner's latest scope.
type ScopeToken struct {
	guard *ScopeGuard
	owner string
	key   string
}

// Acquire registers a build for owner and scope, cancelling any build
// the owner already has running. The returned context is cancelled
// when a later Acquire or Release for the same owner supersedes it.
func (g *ScopeGuard) Acquire(ctx context.Context, owner string, scope models.Scope) (context.Context, *ScopeToken) {
	buildCtx, cancel := context.WithCancel(ctx)

	g.mu.Lock()
	if prev, ok := g.sessions[owner]; ok {
		g.logger.Debug("superseding in-flight report build",
			zap.String("owner", owner), zap.String("old_scope", prev.key), zap.String("new_scope", scope.Key()))
		prev.cancel()
	}
	g.sessions[owner] = &scopeSession{key: scope.Key(), cancel: cancel}
	g.mu.Unlock()

	return buildCtx, &ScopeToken{guard: g, owner: owner, key: scope.Key()}
}

// Current reports whether the token's scope is still the owner's
// latest acquisition.
func (t *ScopeToken) Current() bool {
	if t == nil || t.guard == nil {
		return false
	}
	t.guard.mu.Lock()
	defer t.guard.mu.Unlock()
	session, ok := t.guard.sessions[t.owner]
	return ok && session.key == t.key
}

// Release drops the owner's session if the token still holds it,
// cancelling the associated context.
func (g *ScopeGuard) Release(token *ScopeToken) {
	if token == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	session, ok := g.sessions[token.owner]
	if ok && session.key == token.key {
		session.cancel()
		delete(g.sessions, token.owner)
	}
}
