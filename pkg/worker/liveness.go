package worker

import "sync/atomic"

// livenessGuard ties a shared flag to the lifetime of one worker goroutine.
// markAlive sets the flag; release must be deferred so the flag is cleared
// on every exit path, including a panic unwinding the worker.
type livenessGuard struct {
	flag *atomic.Bool
}

func markAlive(flag *atomic.Bool) livenessGuard {
	flag.Store(true)
	return livenessGuard{flag: flag}
}

func (g livenessGuard) release() {
	g.flag.Store(false)
}
