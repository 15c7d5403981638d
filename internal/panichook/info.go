package panichook

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// UnknownLocation is used when the panic site cannot be determined.
const UnknownLocation = "NA"

// UnresolvedFunction names a frame whose function could not be resolved.
const UnresolvedFunction = "unresolved symbol"

// UnprintableValue is the message used when a panic value cannot be
// rendered, for example because its Error method panics too.
const UnprintableValue = "unprintable panic value"

const maxFrames = 128

// Frame is one entry of a captured call stack.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Info describes a recovered panic.
type Info struct {
	// Value is the argument passed to panic.
	Value any

	// Message is a human readable rendering of Value.
	Message string

	// Location is "file: line" of the panic site, or UnknownLocation.
	Location string

	// Frames is the call stack, innermost first.
	Frames []Frame

	// Stack is the formatted goroutine stack.
	Stack []byte
}

// NewInfo captures the current call stack for a recovered panic value.
// skip is the number of frames above the caller of NewInfo to leave out.
func NewInfo(value any, skip int) *Info {
	frames := captureFrames(skip + 2)
	return &Info{
		Value:    value,
		Message:  Message(value),
		Location: panicSite(frames),
		Frames:   frames,
		Stack:    stack(),
	}
}

func stack() (out []byte) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	return debug.Stack()
}

// Message renders a panic value as text. A String or Error method that
// panics falls back to fmt's rendering, and failing that to
// UnprintableValue.
func Message(v any) (msg string) {
	defer func() {
		if recover() != nil {
			msg = formatValue(v)
		}
	}()
	switch x := v.(type) {
	case string:
		return x
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return formatValue(x)
	}
}

func formatValue(v any) (msg string) {
	defer func() {
		if recover() != nil {
			msg = UnprintableValue
		}
	}()
	return fmt.Sprintf("%v", v)
}

// captureFrames walks the stack best-effort; a failure during resolution
// returns whatever was collected so far.
func captureFrames(skip int) (frames []Frame) {
	defer func() {
		if recover() != nil && frames == nil {
			frames = []Frame{}
		}
	}()

	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return []Frame{}
	}

	iter := runtime.CallersFrames(pcs[:n])
	for {
		f, more := iter.Next()
		fn := f.Function
		if fn == "" {
			fn = UnresolvedFunction
		}
		frames = append(frames, Frame{Function: fn, File: f.File, Line: f.Line})
		if !more {
			break
		}
	}
	return frames
}

// panicSite returns the location of the first non-runtime frame after
// runtime.gopanic, falling back to the first non-runtime frame.
func panicSite(frames []Frame) string {
	start := 0
	for i, f := range frames {
		if f.Function == "runtime.gopanic" {
			start = i + 1
			break
		}
	}
	for _, f := range frames[start:] {
		if strings.HasPrefix(f.Function, "runtime.") || f.File == "" {
			continue
		}
		return fmt.Sprintf("%s: %d", f.File, f.Line)
	}
	return UnknownLocation
}
