package playback

import "time"

// Clock supplies the current time and schedules deadlines
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

// Stopper cancels a scheduled deadline. Stop reports whether the call
// prevented the callback from running.
type Stopper interface {
	Stop() bool
}

type realClock struct{}

// RealClock is the wall clock backed by time.AfterFunc
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}
