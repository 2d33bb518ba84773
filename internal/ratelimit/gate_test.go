package ratelimit

import (
	"testing"
	"time"
)

func newTestGate(delay time.Duration) (*Gate, *time.Time) {
	g := New(delay)
	now := time.Unix(1_700_000_000, 0)
	g.now = func() time.Time { return now }
	return g, &now
}

func TestGate_AllowFreshSource(t *testing.T) {
	g, _ := newTestGate(500 * time.Millisecond)

	ok, wait := g.Allow("youtube")
	if !ok || wait != 0 {
		t.Errorf("fresh source should be allowed, got ok=%v wait=%v", ok, wait)
	}
}

func TestGate_GatesWithinDelay(t *testing.T) {
	g, now := newTestGate(500 * time.Millisecond)

	g.Stamp("youtube")

	*now = now.Add(200 * time.Millisecond)
	ok, wait := g.Allow("youtube")
	if ok {
		t.Fatal("source should be gated within the delay")
	}
	if wait != 300*time.Millisecond {
		t.Errorf("remaining wait = %v, expected 300ms", wait)
	}

	// Other sources are unaffected.
	if ok, _ := g.Allow("spotify"); !ok {
		t.Error("unrelated source must not be gated")
	}

	*now = now.Add(300 * time.Millisecond)
	if ok, _ := g.Allow("youtube"); !ok {
		t.Error("source should be allowed once the delay elapses")
	}
}

func TestGate_ZeroDelayNeverGates(t *testing.T) {
	g, _ := newTestGate(0)

	g.Stamp("youtube")
	if ok, _ := g.Allow("youtube"); !ok {
		t.Error("zero delay must never gate")
	}
}

func TestGate_ClearScoped(t *testing.T) {
	g, _ := newTestGate(time.Second)

	g.Stamp("youtube")
	g.Stamp("spotify")

	g.Clear("youtube")
	if ok, _ := g.Allow("youtube"); !ok {
		t.Error("cleared source should be allowed")
	}
	if ok, _ := g.Allow("spotify"); ok {
		t.Error("uncleared source should stay gated")
	}

	g.Clear()
	if len(g.Status()) != 0 {
		t.Error("unscoped clear should empty the ledger")
	}
}

func TestGate_StatusIsACopy(t *testing.T) {
	g, _ := newTestGate(time.Second)
	g.Stamp("youtube")

	status := g.Status()
	delete(status, "youtube")

	if len(g.Status()) != 1 {
		t.Error("mutating the returned status must not affect the ledger")
	}
}

func TestGate_SetDelay(t *testing.T) {
	g, now := newTestGate(time.Second)

	g.Stamp("youtube")
	*now = now.Add(100 * time.Millisecond)

	g.SetDelay(50 * time.Millisecond)
	if ok, _ := g.Allow("youtube"); !ok {
		t.Error("shortened delay should take effect on the next Allow")
	}
	if g.Delay() != 50*time.Millisecond {
		t.Errorf("Delay() = %v", g.Delay())
	}
}
