package board

import (
	"context"
	"sync"

	"kreltrack/internal/domain/request"
	apperrors "kreltrack/internal/shared/errors"
)

type fakeReader struct {
	mu   sync.Mutex
	rows map[string]*request.Request

	listErr error
	// runs after the list snapshot is taken and before it is returned
	afterList func()
	lists     []request.Filter
}

func newFakeReader() *fakeReader {
	return &fakeReader{rows: make(map[string]*request.Request)}
}

func (f *fakeReader) put(r *request.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[r.Number()] = r
}

func (f *fakeReader) drop(number string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, number)
}

func (f *fakeReader) Get(_ context.Context, number string) (*request.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[number]
	if !ok {
		return nil, apperrors.NewNotFoundError("request not found", number)
	}
	return r, nil
}

func (f *fakeReader) List(_ context.Context, filter request.Filter) ([]*request.Request, error) {
	f.mu.Lock()
	f.lists = append(f.lists, filter)
	if f.listErr != nil {
		f.mu.Unlock()
		return nil, f.listErr
	}
	var out []*request.Request
	for _, r := range f.rows {
		if len(filter.Statuses) > 0 && r.Status() != filter.Statuses[0] {
			continue
		}
		out = append(out, r)
	}
	hook := f.afterList
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}
