package panichook

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func installForTest(t *testing.T, h Handler) {
	t.Helper()
	prev := Install(h)
	t.Cleanup(func() { Restore(prev) })
}

func TestInstall_ReturnsPrevious(t *testing.T) {
	t.Cleanup(Reset)
	Reset()

	var calls []string
	first := func(*Info) { calls = append(calls, "first") }
	second := func(*Info) { calls = append(calls, "second") }

	require.Nil(t, Install(first), "default handler is reported as nil")

	prev := Install(second)
	require.NotNil(t, prev)
	prev(&Info{})
	require.Equal(t, []string{"first"}, calls)

	Restore(prev)
	Current()(&Info{})
	require.Equal(t, []string{"first", "first"}, calls)

	Reset()
	require.Nil(t, Install(nil))
}

func TestGo_DispatchesPanicToHandler(t *testing.T) {
	got := make(chan *Info, 1)
	installForTest(t, func(info *Info) { got <- info })

	Go(func() {
		panic("Panic Handler Testing")
	})

	var info *Info
	select {
	case info = <-got:
	case <-time.After(time.Second):
		t.Fatalf("handler was not invoked")
	}

	require.Equal(t, "Panic Handler Testing", info.Message)
	require.Equal(t, "Panic Handler Testing", info.Value)
	require.NotEmpty(t, info.Frames)
	require.NotEmpty(t, info.Stack)
	require.True(t, strings.Contains(info.Location, "panichook_test.go: "), "location %q", info.Location)

	var sawTest bool
	for _, f := range info.Frames {
		require.NotEmpty(t, f.Function)
		if strings.Contains(f.Function, "TestGo_DispatchesPanicToHandler") {
			sawTest = true
		}
	}
	require.True(t, sawTest, "expected the panicking closure among the frames")
}

func TestRecover_SwallowsPanic(t *testing.T) {
	var got *Info
	installForTest(t, func(info *Info) { got = info })

	func() {
		defer Recover()
		panic(errors.New("wrapped failure"))
	}()

	require.NotNil(t, got)
	require.Equal(t, "wrapped failure", got.Message)
}

func TestRecover_NoPanicIsNoop(t *testing.T) {
	called := false
	installForTest(t, func(*Info) { called = true })

	func() {
		defer Recover()
	}()

	require.False(t, called)
}

func TestRepanic_DispatchesThenPanicsAgain(t *testing.T) {
	var order []string
	installForTest(t, func(*Info) { order = append(order, "handler") })

	require.PanicsWithValue(t, "again", func() {
		defer func() {
			order = append(order, "outer")
		}()
		defer Repanic()
		panic("again")
	})
	require.Equal(t, []string{"handler", "outer"}, order)
}

func TestDispatch_SwallowsHandlerPanic(t *testing.T) {
	installForTest(t, func(*Info) { panic("handler bug") })

	require.NotPanics(t, func() {
		Dispatch(&Info{Message: "x"})
	})
}

type stringer struct{}

func (stringer) String() string { return "from stringer" }

func TestMessage(t *testing.T) {
	require.Equal(t, "s", Message("s"))
	require.Equal(t, "e", Message(errors.New("e")))
	require.Equal(t, "from stringer", Message(stringer{}))
	require.Equal(t, "42", Message(42))
}

func TestNewInfo_OutsidePanicUsesCaller(t *testing.T) {
	info := NewInfo("manual", 0)
	require.NotEmpty(t, info.Frames)
	require.Contains(t, info.Frames[0].Function, "TestNewInfo_OutsidePanicUsesCaller")
	require.Contains(t, info.Location, "panichook_test.go: ")
}

func TestPanicSite_FallsBackToUnknown(t *testing.T) {
	require.Equal(t, UnknownLocation, panicSite(nil))
	require.Equal(t, UnknownLocation, panicSite([]Frame{{Function: "runtime.gopanic"}, {Function: UnresolvedFunction}}))
}

type fieldErr struct {
	msg string
}

func (e *fieldErr) Error() string { return e.msg }

type explodingStringer struct{}

func (explodingStringer) String() string { panic("stringer exploded") }

func TestMessage_MethodPanicFallsBackToFormatting(t *testing.T) {
	var nilErr *fieldErr
	require.Equal(t, "<nil>", Message(nilErr))
	require.Contains(t, Message(explodingStringer{}), "stringer exploded")
}

func TestRecover_DispatchesValueWhoseErrorMethodPanics(t *testing.T) {
	var got *Info
	installForTest(t, func(info *Info) { got = info })

	require.NotPanics(t, func() {
		defer Recover()
		var err *fieldErr
		panic(err)
	})

	require.NotNil(t, got, "handler must still be dispatched")
	require.Equal(t, "<nil>", got.Message)
	require.NotEmpty(t, got.Frames)
}

func TestGo_SurvivesValueWhoseErrorMethodPanics(t *testing.T) {
	got := make(chan *Info, 1)
	installForTest(t, func(info *Info) { got <- info })

	Go(func() {
		var err *fieldErr
		panic(err)
	})

	select {
	case info := <-got:
		require.Equal(t, "<nil>", info.Message)
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestSwap_KeepsOwner(t *testing.T) {
	t.Cleanup(Reset)
	Reset()

	owner := new(int)
	require.Nil(t, Swap(Registration{Handler: func(*Info) {}, Owner: owner}).Handler)

	prev := Swap(Registration{Handler: func(*Info) {}})
	require.Same(t, owner, prev.Owner)
	require.NotNil(t, prev.Handler)

	Swap(prev)
	require.Same(t, owner, Swap(Registration{}).Owner)
	require.Nil(t, Install(nil), "zero registration reinstates the default")
}
