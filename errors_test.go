package fsmrt

import (
	"errors"
	"testing"
)

// TestDieCallsOsExit exercises the fatal-abort path with osExit stubbed
// out, the same technique used to keep this test process alive while
// still observing the source's die()-equivalent behavior.
func TestDieCallsOsExit(t *testing.T) {
	var gotCode int
	origExit := osExit
	osExit = func(code int) { gotCode = code }
	defer func() { osExit = origExit }()

	die(nil, "boom", errors.New("kaboom"))

	if gotCode != 1 {
		t.Fatalf("osExit called with %d, want 1", gotCode)
	}
}

func TestSetOnUnknownTimerIsFatal(t *testing.T) {
	var gotCode int
	origExit := osExit
	osExit = func(code int) { gotCode = code }
	defer func() { osExit = origExit }()

	svc := NewTimerService(NewRegistry(), Logger)
	defer svc.Close()

	if err := svc.Set(TimerID("nope"), 0); err != ErrUnknownTimer {
		t.Fatalf("Set() on unknown timer = %v, want ErrUnknownTimer", err)
	}
	if gotCode != 1 {
		t.Fatalf("osExit called with %d, want 1", gotCode)
	}
}
