package cachestatus

import (
	"testing"
	"time"
)

func TestHitString(t *testing.T) {
	cs := CacheStatus{}
	cs.Hit()
	if s := cs.String(); s != "Freshness; hit" {
		t.Fatalf("Cache-Status is %s", s)
	}
}

func TestForwardString(t *testing.T) {
	cs := CacheStatus{Stored: true, Key: "abc"}
	cs.Forward(FwdReasonMiss)
	if s := cs.String(); s != `Freshness; fwd=miss; stored; key="abc"` {
		t.Fatalf("Cache-Status is %s", s)
	}
}

func TestHitClearsForwardReason(t *testing.T) {
	cs := CacheStatus{}
	cs.Forward(FwdReasonBypass)
	cs.Hit()
	if cs.FwdReason != "" {
		t.Fatalf("Forward reason is %s", cs.FwdReason)
	}
}

func TestAge(t *testing.T) {
	now := time.Now()
	if age := Age(now.Add(-90*time.Second-time.Millisecond), now); age != "90" {
		t.Fatalf("Age is %s", age)
	}
	if age := Age(now.Add(time.Minute), now); age != "0" {
		t.Fatalf("Age is %s", age)
	}
}
