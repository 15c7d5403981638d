package transport

import (
	"context"
	"sync"

	"github.com/petrijr/raven/pkg/api"
)

// MemoryTransport records events in memory. It is safe for concurrent use.
type MemoryTransport struct {
	mu     sync.Mutex
	events []*api.Event
	creds  []api.Credential
	fail   error
	notify chan struct{}
}

// Ensure MemoryTransport implements api.Transport.
var _ api.Transport = (*MemoryTransport)(nil)

// NewMemoryTransport creates an empty MemoryTransport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{notify: make(chan struct{})}
}

// Send records a copy of ev, or returns the error set by FailWith.
func (m *MemoryTransport) Send(ctx context.Context, cred api.Credential, ev *api.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}
	m.events = append(m.events, ev.Clone())
	m.creds = append(m.creds, cred)

	close(m.notify)
	m.notify = make(chan struct{})
	return nil
}

// FailWith makes every following Send return err. A nil err restores
// normal recording.
func (m *MemoryTransport) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Events returns the recorded events in delivery order.
func (m *MemoryTransport) Events() []*api.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*api.Event(nil), m.events...)
}

// Credentials returns the credential used for each recorded event.
func (m *MemoryTransport) Credentials() []api.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]api.Credential(nil), m.creds...)
}

// Len returns the number of recorded events.
func (m *MemoryTransport) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// WaitFor blocks until at least n events were recorded or ctx is done.
func (m *MemoryTransport) WaitFor(ctx context.Context, n int) ([]*api.Event, error) {
	for {
		m.mu.Lock()
		if len(m.events) >= n {
			out := append([]*api.Event(nil), m.events...)
			m.mu.Unlock()
			return out, nil
		}
		ch := m.notify
		m.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
