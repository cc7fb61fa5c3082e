package httpcache

import "time"

// Clock abstracts the current instant so the Freshness Engine and Request
// Pipeline can be driven by a fake clock in tests instead of wall time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// SystemClock is the default Clock, backed by time.Now.
var SystemClock Clock = realClock{}
