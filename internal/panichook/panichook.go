// Package panichook is the process-wide registration point for panic
// handlers.
//
// Go has no global hook that runs when a goroutine panics, so the hook is
// driven from deferred calls: goroutines started with Go, or functions that
// defer Recover or Repanic, hand every panic to the installed Handler. The
// platform default writes the panic and its stack to stderr, like the Go
// runtime does for an unrecovered panic.
package panichook

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// Handler is invoked with the details of a recovered panic.
type Handler func(info *Info)

// Registration is an installed handler together with an optional owner tag.
// The zero Registration stands for the platform default.
type Registration struct {
	Handler Handler
	Owner   any
}

var (
	current atomic.Pointer[Registration]
	stderr  sync.Mutex
)

// Default is the platform default handler.
func Default(info *Info) {
	stderr.Lock()
	defer stderr.Unlock()
	fmt.Fprintf(os.Stderr, "panic: %s [recovered]\n\tat %s\n\n%s\n", info.Message, info.Location, info.Stack)
}

// Swap installs r and returns the registration it replaced. A Registration
// with a nil Handler reinstates the default.
func Swap(r Registration) Registration {
	var next *Registration
	if r.Handler != nil {
		next = &r
	}
	prev := current.Swap(next)
	if prev == nil {
		return Registration{}
	}
	return *prev
}

// Install makes h the process-wide handler and returns the handler that was
// in effect before, or nil if that was the platform default. A nil h
// reinstates the default.
func Install(h Handler) Handler {
	return Swap(Registration{Handler: h}).Handler
}

// Restore reinstates a handler previously returned by Install.
func Restore(prev Handler) {
	Install(prev)
}

// Reset reinstates the platform default handler.
func Reset() {
	current.Store(nil)
}

// Current returns the installed handler, or Default.
func Current() Handler {
	r := current.Load()
	if r == nil {
		return Default
	}
	return r.Handler
}

// Dispatch hands info to the installed handler. A panic raised by the
// handler itself is swallowed so that reporting never escalates.
func Dispatch(info *Info) {
	defer func() {
		_ = recover()
	}()
	Current()(info)
}

// Recover must be deferred directly. It recovers a panic, if any, and
// dispatches it; the deferring function then returns normally.
func Recover() {
	r := recover()
	if r == nil {
		return
	}
	Dispatch(NewInfo(r, 1))
}

// Repanic must be deferred directly. It dispatches a panic, if any, and then
// panics again with the same value so the process still crashes.
func Repanic() {
	r := recover()
	if r == nil {
		return
	}
	Dispatch(NewInfo(r, 1))
	panic(r)
}

// Go runs fn on a new goroutine. A panic in fn is dispatched to the
// installed handler and ends only that goroutine.
func Go(fn func()) {
	go func() {
		defer Recover()
		fn()
	}()
}
