package model

import "github.com/jonboulle/clockwork"

// clock supplies the current time for validation. Tests swap it for a fake
// clock so not-in-the-future checks are deterministic.
var clock clockwork.Clock = clockwork.NewRealClock()

// SetClock overrides the package clock. Passing nil restores the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
