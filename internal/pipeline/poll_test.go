package pipeline

import (
	"testing"
	"time"
)

func TestPollWaitImmediateHit(t *testing.T) {
	slept := 0
	policy := PollPolicy{
		Interval:    time.Millisecond,
		MaxAttempts: 10,
		Sleep:       func(time.Duration) { slept++ },
	}
	if !policy.Wait(func() bool { return true }) {
		t.Fatal("expected immediate hit")
	}
	if slept != 0 {
		t.Fatalf("expected no sleeps, got %d", slept)
	}
}

func TestPollWaitAppearsWithinBudget(t *testing.T) {
	slept := 0
	policy := PollPolicy{
		Interval:    time.Millisecond,
		MaxAttempts: 10,
		Sleep:       func(time.Duration) { slept++ },
	}
	checks := 0
	found := policy.Wait(func() bool {
		checks++
		return checks > 2 // appears after two poll intervals
	})
	if !found {
		t.Fatal("expected the artifact to be found")
	}
	if slept != 2 {
		t.Fatalf("expected 2 sleeps, got %d", slept)
	}
}

func TestPollWaitExhausted(t *testing.T) {
	slept := 0
	policy := PollPolicy{
		Interval:    time.Millisecond,
		MaxAttempts: 5,
		Sleep:       func(time.Duration) { slept++ },
	}
	checks := 0
	if policy.Wait(func() bool { checks++; return false }) {
		t.Fatal("expected exhaustion")
	}
	if slept != 5 {
		t.Fatalf("expected 5 sleeps, got %d", slept)
	}
	// One final check after the last sleep catches a last-moment arrival.
	if checks != 6 {
		t.Fatalf("expected 6 checks, got %d", checks)
	}
}
