package api

import "context"

// Transport delivers one event to a sink.
//
// Send is called from the client's background worker, one event at a time.
// A returned error is reported to the Observer and then dropped; raven does
// not retry. A Transport that panics takes the worker down with it, and the
// next submission starts a replacement.
type Transport interface {
	Send(ctx context.Context, cred Credential, ev *Event) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, cred Credential, ev *Event) error

func (f TransportFunc) Send(ctx context.Context, cred Credential, ev *Event) error {
	return f(ctx, cred, ev)
}
