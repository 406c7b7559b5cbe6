package freshness

import (
	"context"
	"sync"

	"github.com/ericselin/freshness/catalog"
)

// Activation is one consumer waiting on a resolve, e.g. a page that fetches when mounted.
// It starts out Loading and moves to Ready or Failed when the outcome lands,
// unless it was discarded first.
type Activation struct {
	policy Policy
	cancel context.CancelFunc

	mu          sync.Mutex
	outstanding bool
	outcome     *FetchOutcome
	discarded   bool
	err         error

	done     chan struct{}
	doneOnce sync.Once
	// finished is closed when the resolving goroutine has returned
	finished chan struct{}
}

// Activate starts resolving in the background and returns immediately.
func (r *Resolver) Activate(ctx context.Context, policy Policy, source catalog.DataSource, scope Scope) *Activation {
	ctx, cancel := context.WithCancel(ctx)
	a := &Activation{
		policy:      policy,
		cancel:      cancel,
		outstanding: true,
		done:        make(chan struct{}),
		finished:    make(chan struct{}),
	}
	go func() {
		defer close(a.finished)
		defer cancel()
		o, err := r.Resolve(ctx, policy, source, scope)
		a.land(o, err)
	}()
	return a
}

func (a *Activation) land(o FetchOutcome, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outstanding = false
	if a.discarded {
		return
	}
	if err != nil {
		// no outcome for this consumer; the activation stays without one
		a.err = err
	} else {
		a.outcome = &o
	}
	a.closeDone()
}

func (a *Activation) closeDone() {
	a.doneOnce.Do(func() { close(a.done) })
}

// Policy returns the policy the activation resolves under.
func (a *Activation) Policy() Policy {
	return a.policy
}

// State presents the activation as it is right now.
func (a *Activation) State() PresentationState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Present(View{Outstanding: a.outstanding, Outcome: a.outcome})
}

// Outcome returns the landed outcome, if any.
func (a *Activation) Outcome() (FetchOutcome, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.outcome == nil {
		return FetchOutcome{}, false
	}
	return *a.outcome, true
}

// Err reports why the activation ended without an outcome
// (a scope mismatch, a closed scope or its context ending).
func (a *Activation) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Done is closed once the activation has settled or was discarded.
func (a *Activation) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the activation settles or ctx ends, then returns its state.
func (a *Activation) Wait(ctx context.Context) (PresentationState, error) {
	select {
	case <-a.done:
		return a.State(), a.Err()
	case <-ctx.Done():
		return a.State(), ctx.Err()
	}
}

// Discard tears the consumer down. A fetch still in flight runs to completion
// but its result is neither recorded nor presented.
func (a *Activation) Discard() {
	a.mu.Lock()
	a.discarded = true
	a.mu.Unlock()
	a.cancel()
	a.closeDone()
}
