package freshness

import (
	"github.com/ericselin/freshness/catalog"
)

// StateKind is what a caller renders.
type StateKind int

const (
	Loading StateKind = iota
	Ready
	Failed
)

func (k StateKind) String() string {
	switch k {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "loading"
}

// PresentationState is derived from the latest outcome and never stored.
type PresentationState struct {
	Kind    StateKind
	Catalog catalog.Catalog
	Reason  error
}

// ReasonCode is the failure category, empty unless Failed.
func (s PresentationState) ReasonCode() string {
	return ReasonCode(s.Reason)
}

// View is what the presentation is computed from.
type View struct {
	// Outstanding is set while a fetch is in flight.
	Outstanding bool
	// Outcome is the latest outcome, nil if none has landed yet.
	Outcome *FetchOutcome
}

// Present maps a view to the state to render.
// The mapping is the same for every policy. A view with no outcome is
// Loading whether or not a fetch is outstanding.
func Present(v View) PresentationState {
	switch {
	case v.Outcome == nil:
		return PresentationState{Kind: Loading}
	case v.Outcome.Status == Success:
		return PresentationState{Kind: Ready, Catalog: v.Outcome.Catalog}
	default:
		return PresentationState{Kind: Failed, Reason: v.Outcome.Err}
	}
}

// PresentOutcome presents a landed outcome.
func PresentOutcome(o FetchOutcome) PresentationState {
	return Present(View{Outcome: &o})
}
