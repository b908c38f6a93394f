package batch

import "time"

// Timer is a cancellable scheduled call.
type Timer interface {
	Stop() bool
}

// Clock schedules debounce callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock {
	return realClock{}
}
