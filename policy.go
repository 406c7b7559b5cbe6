package freshness

import (
	"fmt"
	"strings"
)

// Policy selects when the catalog is fetched relative to a request boundary.
type Policy int

const (
	// OnDemand fetches every time the consuming context activates. Nothing is cached.
	OnDemand Policy = iota + 1
	// PerRequest fetches once per request scope and never shares across requests.
	PerRequest
	// Frozen fetches once per process scope and never again.
	Frozen
)

// Policies lists every policy in declaration order.
var Policies = []Policy{OnDemand, PerRequest, Frozen}

func (p Policy) String() string {
	switch p {
	case OnDemand:
		return "on-demand"
	case PerRequest:
		return "per-request"
	case Frozen:
		return "frozen"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Valid reports whether p is one of the declared policies.
func (p Policy) Valid() bool {
	return p >= OnDemand && p <= Frozen
}

// Cached reports whether outcomes under p are kept in a scope slot.
func (p Policy) Cached() bool {
	return p == PerRequest || p == Frozen
}

// ParsePolicy parses a policy name.
// The rendering-mode aliases csr, ssr and ssg are accepted as well.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on-demand", "ondemand", "csr":
		return OnDemand, nil
	case "per-request", "perrequest", "ssr":
		return PerRequest, nil
	case "frozen", "ssg":
		return Frozen, nil
	}
	return 0, fmt.Errorf("unknown freshness policy %q", s)
}
