package controller

import "time"

// Clock supplies the controller's notion of time. Injecting it keeps the
// decision procedure replayable in tests; production uses the wall clock.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }
