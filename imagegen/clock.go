package imagegen

import "time"

// Clock abstracts time for the poller so the poll driver can be tested
// with a fake time source instead of real sleeps.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that fires once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// systemClock implements Clock with the real time package.
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// SystemClock returns the real-time Clock used outside of tests.
func SystemClock() Clock {
	return systemClock{}
}
