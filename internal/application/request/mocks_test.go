package request

import (
	"context"
	"sync"

	pvo "kreltrack/internal/domain/permission/value_objects"
	"kreltrack/internal/domain/request"
	"kreltrack/internal/domain/shared/events"
	"kreltrack/internal/domain/user"
	apperrors "kreltrack/internal/shared/errors"
)

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

// recordingPublisher keeps every event; onPublish runs before the event is
// recorded, while the service still holds its per-number section.
type recordingPublisher struct {
	mu        sync.Mutex
	events    []events.Event
	onPublish func(events.Event)
}

func (p *recordingPublisher) Publish(e events.Event) {
	if p.onPublish != nil {
		p.onPublish(e)
	}
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

// mockRepository wraps a real repository and lets a test override single calls.
type mockRepository struct {
	request.Repository

	UpdateFunc      func(ctx context.Context, r *request.Request) error
	GetByNumberFunc func(ctx context.Context, number string) (*request.Request, error)
	ListFunc        func(ctx context.Context, filter request.Filter) ([]*request.Request, error)
}

func (m *mockRepository) Update(ctx context.Context, r *request.Request) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, r)
	}
	return m.Repository.Update(ctx, r)
}

func (m *mockRepository) GetByNumber(ctx context.Context, number string) (*request.Request, error) {
	if m.GetByNumberFunc != nil {
		return m.GetByNumberFunc(ctx, number)
	}
	return m.Repository.GetByNumber(ctx, number)
}

func (m *mockRepository) List(ctx context.Context, filter request.Filter) ([]*request.Request, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return m.Repository.List(ctx, filter)
}

type mockTxRunner struct {
	inner TxRunner
	// commitErr is returned after fn succeeds, as if the commit failed
	commitErr error
}

func (m *mockTxRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.commitErr == nil {
		return m.inner.RunInTransaction(ctx, fn)
	}
	err := m.inner.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := fn(txCtx); err != nil {
			return err
		}
		return m.commitErr
	})
	return err
}
