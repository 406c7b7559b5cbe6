package freshness

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestActivationLoadingThenReady(t *testing.T) {
	src := &countingSource{gate: make(chan struct{}), fn: threeProducts}
	a := newTestResolver().Activate(context.Background(), OnDemand, src, nil)

	require.Equal(t, Loading, a.State().Kind)
	_, ok := a.Outcome()
	require.False(t, ok)

	close(src.gate)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	state, err := a.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, Ready, state.Kind)
	require.Len(t, state.Catalog, 3)
}

func TestActivationRemountRecovers(t *testing.T) {
	src := &countingSource{fn: ioFailure}
	r := newTestResolver()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first, err := r.Activate(ctx, OnDemand, src, nil).Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, Failed, first.Kind)
	require.Equal(t, ReasonIO, first.ReasonCode())

	src.fn = threeProducts
	second, err := r.Activate(ctx, OnDemand, src, nil).Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, Ready, second.Kind)
	require.Equal(t, int32(2), src.calls.Load())
}

func TestDiscardedActivationIgnoresLateResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	logger := zerolog.Nop()
	r := New(Config{Logger: &logger, Metrics: metrics})
	src := &countingSource{gate: make(chan struct{}), returned: make(chan struct{}, 1), fn: threeProducts}

	a := r.Activate(context.Background(), OnDemand, src, nil)
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	a.Discard()
	<-a.Done()

	// the source finishes after the consumer is gone
	close(src.gate)
	<-src.returned
	<-a.finished

	_, ok := a.Outcome()
	require.False(t, ok)
	require.Equal(t, Loading, a.State().Kind)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.discarded.WithLabelValues("on-demand")) == 1
	}, time.Second, time.Millisecond)
}

func TestActivationScopeMismatch(t *testing.T) {
	src := &countingSource{fn: threeProducts}
	a := newTestResolver().Activate(context.Background(), Frozen, src, NewRequestScope())
	<-a.Done()
	require.ErrorIs(t, a.Err(), ErrScopeMismatch)
	require.Equal(t, Loading, a.State().Kind)
	require.Equal(t, Frozen, a.Policy())
}

func TestActivationSharesFrozenOutcome(t *testing.T) {
	src := &countingSource{fn: numbered}
	r := newTestResolver()
	process := NewProcessScope()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	a, err := r.Activate(ctx, Frozen, src, process).Wait(ctx)
	require.NoError(t, err)
	b, err := r.Activate(ctx, Frozen, src, process).Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, int32(1), src.calls.Load())
}
