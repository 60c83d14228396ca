package transfer

import (
	"context"
	"fmt"
	"sync"

	apprequest "kreltrack/internal/application/request"
	"kreltrack/internal/domain/request"
	"kreltrack/internal/domain/user"
)

type statusChange struct {
	number string
	status string
}

type mockWriter struct {
	mu      sync.Mutex
	created []request.Patch
	updates []statusChange
	seq     int

	CreateFunc func(candidate request.Patch) error
}

func (m *mockWriter) Create(_ context.Context, candidate request.Patch, _ user.Actor) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateFunc != nil {
		if err := m.CreateFunc(candidate); err != nil {
			return "", err
		}
	}
	m.seq++
	m.created = append(m.created, candidate)
	return fmt.Sprintf("20260302-%03d", m.seq), nil
}

func (m *mockWriter) Update(_ context.Context, number string, patch request.Patch, _ user.Actor, _ ...apprequest.UpdateOption) (*request.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, statusChange{number: number, status: patch.Status.Value()})
	return nil, nil
}

type mockLister struct {
	requests []*request.Request
	err      error
	filter   request.Filter
}

func (m *mockLister) List(_ context.Context, filter request.Filter) ([]*request.Request, error) {
	m.filter = filter
	return m.requests, m.err
}
