package freshness

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Scope identifies the unit of reuse for resolved outcomes.
// A *ProcessScope serves Frozen, a *RequestScope serves PerRequest
// and OnDemand takes NoScope (or nil).
type Scope interface {
	ID() string
	slot() *slot
}

type noScope struct{}

func (noScope) ID() string  { return "" }
func (noScope) slot() *slot { return nil }

// NoScope is the scope of OnDemand resolution: nothing is reused.
var NoScope Scope = noScope{}

// slot holds at most one outcome for the lifetime of its scope.
// Concurrent fills are coalesced by group.
type slot struct {
	id      string
	outcome atomic.Pointer[FetchOutcome]
	group   singleflight.Group

	// mu orders store against close, so nothing is written after close
	mu     sync.Mutex
	closed bool
}

func newSlot() *slot {
	return &slot{id: uuid.NewString()}
}

func (s *slot) load() *FetchOutcome {
	return s.outcome.Load()
}

// store records o unless the slot is closed or already filled.
// It returns the outcome held by the slot afterwards, or nil if closed and empty.
func (s *slot) store(o FetchOutcome) *FetchOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.outcome.Load()
	}
	s.outcome.CompareAndSwap(nil, &o)
	return s.outcome.Load()
}

func (s *slot) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *slot) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ProcessScope is the process-lifetime home of the Frozen outcome.
// Create it once at startup and hand it to every Frozen call site.
// It has no teardown; re-initialization means creating a new one.
type ProcessScope struct {
	s *slot
}

func NewProcessScope() *ProcessScope {
	return &ProcessScope{s: newSlot()}
}

func (p *ProcessScope) ID() string  { return p.s.id }
func (p *ProcessScope) slot() *slot { return p.s }

// Outcome returns the frozen outcome if initialization has completed.
func (p *ProcessScope) Outcome() (FetchOutcome, bool) {
	if o := p.s.load(); o != nil {
		return *o, true
	}
	return FetchOutcome{}, false
}

// RequestScope is owned by a single external request.
// Close it when the request ends; results landing afterwards are discarded.
type RequestScope struct {
	s *slot
}

func NewRequestScope() *RequestScope {
	return &RequestScope{s: newSlot()}
}

func (r *RequestScope) ID() string  { return r.s.id }
func (r *RequestScope) slot() *slot { return r.s }

// Close ends the scope. It is safe to call more than once.
func (r *RequestScope) Close() {
	r.s.close()
}

// Closed reports whether the scope has ended.
func (r *RequestScope) Closed() bool {
	return r.s.isClosed()
}

type requestScopeKey struct{}

// WithRequestScope returns a context carrying the request scope.
func WithRequestScope(ctx context.Context, scope *RequestScope) context.Context {
	return context.WithValue(ctx, requestScopeKey{}, scope)
}

// RequestScopeFrom returns the request scope carried by ctx, if any.
func RequestScopeFrom(ctx context.Context) (*RequestScope, bool) {
	scope, ok := ctx.Value(requestScopeKey{}).(*RequestScope)
	return scope, ok && scope != nil
}
