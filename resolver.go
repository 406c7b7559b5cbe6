package freshness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ericselin/freshness/catalog"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidPolicy = errors.New("invalid freshness policy")
	ErrNoSource      = errors.New("no data source")
)

// slotKey is the singleflight key; a slot only ever holds the catalog.
const slotKey = "catalog"

type Config struct {
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
	// Metrics to record into. Nothing is recorded if nil.
	Metrics *Metrics
	// Clock used to stamp outcomes. Defaults to time.Now.
	Now func() time.Time
}

// Resolver fetches the catalog following a policy's caching discipline.
// It is safe for concurrent use; all state lives in the scopes passed to it.
type Resolver struct {
	log     zerolog.Logger
	metrics *Metrics
	now     func() time.Time
}

// Resolution is an outcome plus whether it was reused from the scope slot.
type Resolution struct {
	Outcome FetchOutcome
	Hit     bool
}

// New creates a resolver.
func New(config Config) *Resolver {
	// use console logger if not specified in config
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	} else {
		logger = *config.Logger
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		log:     logger.With().Str("component", "resolver").Logger(),
		metrics: config.Metrics,
		now:     now,
	}
}

// Resolve returns the catalog outcome for policy in scope.
//
// Source failures are reported in the outcome, never as the error.
// The error is set only for a scope that does not fit the policy,
// a closed request scope, or when ctx ends before the outcome is available.
func (r *Resolver) Resolve(ctx context.Context, policy Policy, source catalog.DataSource, scope Scope) (FetchOutcome, error) {
	res, err := r.Lookup(ctx, policy, source, scope)
	return res.Outcome, err
}

// Lookup is Resolve, also telling whether the outcome came from the scope slot.
func (r *Resolver) Lookup(ctx context.Context, policy Policy, source catalog.DataSource, scope Scope) (Resolution, error) {
	if !policy.Valid() {
		return Resolution{}, fmt.Errorf("%w: %s", ErrInvalidPolicy, policy)
	}
	if source == nil {
		return Resolution{}, ErrNoSource
	}
	s, err := slotFor(policy, scope)
	if err != nil {
		return Resolution{}, err
	}
	if s == nil {
		o, err := r.fetchDetached(ctx, policy, source)
		return Resolution{Outcome: o}, err
	}
	return r.lookupSlot(ctx, policy, source, s)
}

// Warm performs the frozen initialization of process.
// Call it once at startup; later Frozen resolves reuse its outcome.
func (r *Resolver) Warm(ctx context.Context, source catalog.DataSource, process *ProcessScope) (FetchOutcome, error) {
	o, err := r.Resolve(ctx, Frozen, source, process)
	if err != nil {
		return o, err
	}
	evt := r.log.Info()
	if !o.OK() {
		evt = r.log.Error().Err(o.Err)
	}
	evt.Str("scope", process.ID()).
		Int("products", len(o.Catalog)).
		Time("fetchedAt", o.FetchedAt).
		Msg("Frozen catalog initialized")
	return o, nil
}

func slotFor(policy Policy, scope Scope) (*slot, error) {
	switch policy {
	case PerRequest:
		if rs, ok := scope.(*RequestScope); ok && rs != nil {
			return rs.slot(), nil
		}
		return nil, fmt.Errorf("%w: %s needs a request scope", ErrScopeMismatch, policy)
	case Frozen:
		if ps, ok := scope.(*ProcessScope); ok && ps != nil {
			return ps.slot(), nil
		}
		return nil, fmt.Errorf("%w: %s needs a process scope", ErrScopeMismatch, policy)
	}
	return nil, nil
}

func (r *Resolver) lookupSlot(ctx context.Context, policy Policy, source catalog.DataSource, s *slot) (Resolution, error) {
	log := r.log.With().Str("policy", policy.String()).Str("scope", s.id).Logger()

	if o := s.load(); o != nil {
		r.metrics.lookedUp(policy, true)
		log.Trace().Msg("Reusing stored outcome")
		return Resolution{Outcome: *o, Hit: true}, nil
	}
	if s.isClosed() {
		return Resolution{}, ErrScopeClosed
	}
	r.metrics.lookedUp(policy, false)
	log.Trace().Msg("No stored outcome, fetching")

	// the fetch outlives any single caller so the others still converge on it
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(slotKey, func() (interface{}, error) {
		if o := s.load(); o != nil {
			return o, nil
		}
		o := r.fetch(detached, policy, source, s.id)
		stored := s.store(o)
		if stored == nil {
			r.metrics.dropped(policy)
			log.Debug().Msg("Scope closed before fetch completed, discarding result")
			return nil, ErrScopeClosed
		}
		return stored, nil
	})

	select {
	case <-ctx.Done():
		return Resolution{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Resolution{}, res.Err
		}
		return Resolution{Outcome: *res.Val.(*FetchOutcome)}, nil
	}
}

// fetchDetached runs an unscoped fetch. If ctx ends first the fetch is left
// to finish on its own and its result is dropped.
func (r *Resolver) fetchDetached(ctx context.Context, policy Policy, source catalog.DataSource) (FetchOutcome, error) {
	if err := ctx.Err(); err != nil {
		return FetchOutcome{}, err
	}
	done := make(chan FetchOutcome, 1)
	go func() {
		done <- r.fetch(context.WithoutCancel(ctx), policy, source, "")
	}()
	select {
	case o := <-done:
		return o, nil
	case <-ctx.Done():
		go func() {
			<-done
			r.metrics.dropped(policy)
			r.log.Debug().Str("policy", policy.String()).Msg("Consumer gone, discarding late result")
		}()
		return FetchOutcome{}, ctx.Err()
	}
}

// fetch calls the source once and wraps whatever happens into an outcome.
func (r *Resolver) fetch(ctx context.Context, policy Policy, source catalog.DataSource, scopeID string) (o FetchOutcome) {
	log := r.log.With().Str("policy", policy.String()).Str("scope", scopeID).Logger()

	defer func() {
		if p := recover(); p != nil {
			log.WithLevel(zerolog.PanicLevel).Interface("error", p).Msg("Panic in catalog source")
			o = r.outcome(policy, scopeID, nil, fmt.Errorf("catalog source panicked: %v", p))
		}
		r.metrics.fetched(policy, o)
	}()

	log.Debug().Msg("Fetching catalog from source")
	c, err := source.FetchCatalog(ctx)
	o = r.outcome(policy, scopeID, c, err)
	if err != nil {
		log.Warn().Err(err).Msg("Could not fetch catalog")
	} else {
		log.Debug().Int("products", len(c)).Msg("Fetched catalog")
	}
	return o
}

func (r *Resolver) outcome(policy Policy, scopeID string, c catalog.Catalog, err error) FetchOutcome {
	var o FetchOutcome
	if err != nil {
		if policy == Frozen {
			err = &FrozenInitError{Err: err}
		}
		o = failed(err, r.now())
	} else {
		o = succeeded(c, r.now())
	}
	o.Policy = policy
	o.ScopeID = scopeID
	return o
}
