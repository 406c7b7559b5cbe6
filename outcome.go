package freshness

import (
	"time"

	"github.com/ericselin/freshness/catalog"
)

// Status tells which half of a FetchOutcome is meaningful.
type Status int

const (
	Success Status = iota + 1
	Failure
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Failure:
		return "failure"
	}
	return "unknown"
}

// FetchOutcome is the immutable record of one fetch attempt.
// Catalog is set on Success, Err on Failure.
type FetchOutcome struct {
	Status    Status
	Catalog   catalog.Catalog
	Err       error
	FetchedAt time.Time
	// Policy the outcome was produced under.
	Policy Policy
	// ScopeID of the slot holding the outcome, empty for OnDemand.
	ScopeID string
}

// OK reports whether the fetch succeeded.
func (o FetchOutcome) OK() bool {
	return o.Status == Success
}

func succeeded(c catalog.Catalog, at time.Time) FetchOutcome {
	return FetchOutcome{Status: Success, Catalog: c, FetchedAt: at}
}

func failed(err error, at time.Time) FetchOutcome {
	return FetchOutcome{Status: Failure, Err: err, FetchedAt: at}
}
