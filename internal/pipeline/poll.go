package pipeline

import "time"

// PollPolicy bounds how long a stage waits for an artifact that is expected
// to appear shortly, such as audio still being uploaded when a review is
// requested. Sleep is injectable so tests run without real elapsed time.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	Sleep       func(time.Duration)
}

// DefaultPollPolicy matches a total budget of ten seconds.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: 250 * time.Millisecond, MaxAttempts: 40}
}

// Wait re-evaluates exists up to MaxAttempts times, sleeping Interval
// between checks. It returns true as soon as exists does.
func (p PollPolicy) Wait(exists func() bool) bool {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if exists() {
			return true
		}
		sleep(p.Interval)
	}
	return exists()
}
