package freshness

import (
	"fmt"
	"testing"
	"time"

	"github.com/ericselin/freshness/catalog"

	"github.com/stretchr/testify/require"
)

func TestPresentReadyIsIdempotent(t *testing.T) {
	c, _ := threeProducts(0)
	for _, policy := range Policies {
		o := succeeded(c, time.Now())
		o.Policy = policy
		first := Present(View{Outcome: &o})
		second := Present(View{Outcome: &o})
		require.Equal(t, Ready, first.Kind)
		require.Equal(t, c, first.Catalog)
		require.Equal(t, first, second)
	}
}

func TestPresentLoading(t *testing.T) {
	require.Equal(t, PresentationState{Kind: Loading}, Present(View{Outstanding: true}))
	require.Equal(t, PresentationState{Kind: Loading}, Present(View{}))
}

func TestPresentLatestOutcomeWhileRefetching(t *testing.T) {
	c, _ := threeProducts(0)
	o := succeeded(c, time.Now())
	require.Equal(t, Ready, Present(View{Outstanding: true, Outcome: &o}).Kind)
}

func TestPresentFailedKeepsReason(t *testing.T) {
	cases := map[string]struct {
		err  error
		code string
	}{
		"io":     {fmt.Errorf("%w: timeout", catalog.ErrIO), ReasonIO},
		"format": {fmt.Errorf("%w: bad json", catalog.ErrFormat), ReasonFormat},
		"frozen": {&FrozenInitError{Err: catalog.ErrFormat}, ReasonFormat},
		"other":  {fmt.Errorf("something else"), ReasonUnknown},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			o := failed(tc.err, time.Now())
			state := Present(View{Outcome: &o})
			require.Equal(t, Failed, state.Kind)
			require.Nil(t, state.Catalog)
			require.Same(t, tc.err, state.Reason)
			require.Equal(t, tc.code, state.ReasonCode())
		})
	}
}

func TestStateKindNames(t *testing.T) {
	require.Equal(t, "loading", Loading.String())
	require.Equal(t, "ready", Ready.String())
	require.Equal(t, "failed", Failed.String())
}

func TestParsePolicy(t *testing.T) {
	for _, p := range Policies {
		parsed, err := ParsePolicy(p.String())
		require.NoError(t, err)
		require.Equal(t, p, parsed)
	}
	for alias, want := range map[string]Policy{"csr": OnDemand, "SSR": PerRequest, " ssg ": Frozen} {
		parsed, err := ParsePolicy(alias)
		require.NoError(t, err)
		require.Equal(t, want, parsed)
	}
	_, err := ParsePolicy("isr")
	require.Error(t, err)
	require.False(t, Policy(0).Valid())
}

func TestPolicyCached(t *testing.T) {
	require.False(t, OnDemand.Cached())
	require.True(t, PerRequest.Cached())
	require.True(t, Frozen.Cached())
}
