package cachestatus

import (
	"fmt"
	"time"
)

// Name identifies this cache in the Cache-Status header.
const Name = "Freshness"

type Status string

const (
	StatusHit = "hit"
	StatusFwd = "fwd"
)

type FwdReason string

const (
	// The policy does not keep outcomes, so the source was always asked.
	FwdReasonBypass = "bypass"

	// The scope held no outcome yet.
	FwdReasonMiss = "miss"
)

// CacheStatus describes how a catalog response was produced,
// in the shape of the Cache-Status response header.
type CacheStatus struct {
	Status    Status
	FwdReason FwdReason
	// Stored is set when the fetched outcome was kept for reuse.
	Stored bool
	// Key is the scope the outcome lives in.
	Key    string
	Detail string
}

func (cs *CacheStatus) Hit() {
	cs.Status = StatusHit
	cs.FwdReason = ""
}

func (cs *CacheStatus) Forward(reason FwdReason) {
	cs.Status = StatusFwd
	cs.FwdReason = reason
}

func (cs *CacheStatus) String() string {
	status := fmt.Sprintf("%s; %s", Name, cs.Status)
	if cs.Status == StatusFwd && cs.FwdReason != "" {
		status = fmt.Sprintf("%s=%s", status, cs.FwdReason)
	}
	if cs.Stored {
		status = status + "; stored"
	}
	if cs.Key != "" {
		status = fmt.Sprintf("%s; key=%q", status, cs.Key)
	}
	if cs.Detail != "" {
		status = status + "; detail=" + cs.Detail
	}
	return status
}

// Age returns the value of the Age header for content fetched at fetchedAt,
// in whole seconds and never negative.
func Age(fetchedAt, now time.Time) string {
	age := now.Sub(fetchedAt)
	if age < 0 {
		age = 0
	}
	return fmt.Sprintf("%d", int64(age/time.Second))
}
