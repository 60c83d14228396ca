package lookup

import (
	"context"
	"sync"
	"sync/atomic"

	"kreltrack/internal/domain/lookup"
	pvo "kreltrack/internal/domain/permission/value_objects"
	"kreltrack/internal/domain/shared/events"
	"kreltrack/internal/domain/user"
	apperrors "kreltrack/internal/shared/errors"
)

type mockEntrySource struct {
	mu      sync.Mutex
	entries map[lookup.Table][]lookup.Entry
	err     error
	calls   atomic.Int32
	// when set, each load blocks until it is closed
	gate chan struct{}
}

func newMockEntrySource() *mockEntrySource {
	return &mockEntrySource{entries: make(map[lookup.Table][]lookup.Entry)}
}

func (m *mockEntrySource) ListEntries(ctx context.Context, table lookup.Table) ([]lookup.Entry, error) {
	m.calls.Add(1)
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]lookup.Entry, len(m.entries[table]))
	copy(out, m.entries[table])
	return out, nil
}

func (m *mockEntrySource) set(table lookup.Table, entries ...lookup.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[table] = entries
}

func (m *mockEntrySource) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

type mockAuthorizer struct {
	AuthorizeFunc func(ctx context.Context, actor user.Actor, resource pvo.Resource, action pvo.Action) error
}

func (m *mockAuthorizer) Authorize(ctx context.Context, actor user.Actor, resource pvo.Resource, action pvo.Action) error {
	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(ctx, actor, resource, action)
	}
	if !actor.Valid() {
		return apperrors.NewMissingIdentityError()
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) published() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

type recordingInvalidator struct {
	tables []lookup.Table
}

func (r *recordingInvalidator) Invalidate(table lookup.Table) {
	r.tables = append(r.tables, table)
}
