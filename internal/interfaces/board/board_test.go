package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kreltrack/internal/domain/request"
	vo "kreltrack/internal/domain/request/valueobjects"
	"kreltrack/internal/domain/shared/events"
	"kreltrack/internal/infrastructure/pubsub"
	"kreltrack/internal/shared/logger"
)

var base = time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)

func newRequest(t *testing.T, number, requester string) *request.Request {
	t.Helper()
	r, err := request.NewRequest(number, "op", base)
	require.NoError(t, err)
	require.NoError(t, r.Apply(request.Patch{Requester: request.Set(requester)}))
	return r
}

// advanced returns a copy of r moved to status with its version bumped.
func advanced(t *testing.T, r *request.Request, status vo.Status) *request.Request {
	t.Helper()
	next, err := request.ReconstructRequest(withID(r.Snapshot()))
	require.NoError(t, err)
	require.NoError(t, next.Apply(request.Patch{Status: request.Set(status.String())}))
	next.MarkUpdated("op", base.Add(time.Minute))
	return next
}

func withID(s request.Snapshot) request.Snapshot {
	if s.ID == 0 {
		s.ID = 1
	}
	return s
}

func newTestBus(t *testing.T) *pubsub.EventBus {
	bus := pubsub.NewEventBus(logger.NewDiscard(), 16)
	t.Cleanup(bus.Close)
	return bus
}

func flush(t *testing.T, bus *pubsub.EventBus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, bus.Flush(ctx))
}

func numbers(rows []*request.Request) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Number()
	}
	return out
}

func TestBoardFollowsEvents(t *testing.T) {
	bus := newTestBus(t)
	reader := newFakeReader()
	first := newRequest(t, "20260302-001", "Alice")
	reader.put(first)

	var (
		mu      sync.Mutex
		changes []Change
	)
	b := New(reader, bus, logger.NewDiscard(), WithOnChange(func(c Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	}))
	require.NoError(t, b.Open(context.Background()))
	defer b.Close()
	assert.Equal(t, []string{"20260302-001"}, numbers(b.Rows()))

	reader.put(newRequest(t, "20260302-002", "Bob"))
	bus.Publish(events.New(events.KindCreated, "20260302-002"))

	submitted := advanced(t, first, vo.StatusSubmitted)
	reader.put(submitted)
	bus.Publish(events.New(events.KindUpdated, "20260302-001"))

	reader.drop("20260302-002")
	bus.Publish(events.New(events.KindDeleted, "20260302-002"))
	flush(t, bus)

	assert.Equal(t, []string{"20260302-001"}, numbers(b.Rows()))
	got, ok := b.Get("20260302-001")
	require.True(t, ok)
	assert.Equal(t, vo.StatusSubmitted, got.Status())
	assert.Equal(t, 2, got.Version())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 3)
	assert.Equal(t, events.KindCreated, changes[0].Kind)
	assert.Equal(t, events.KindUpdated, changes[1].Kind)
	assert.Equal(t, events.KindDeleted, changes[2].Kind)
	assert.Nil(t, changes[2].Request)
}

func TestBoardReplaysEventsDuringLoad(t *testing.T) {
	bus := newTestBus(t)
	reader := newFakeReader()
	reader.put(newRequest(t, "20260302-001", "Alice"))

	// a write commits after the list snapshot but before Open finishes
	reader.afterList = func() {
		reader.put(newRequest(t, "20260302-002", "Bob"))
		bus.Publish(events.New(events.KindCreated, "20260302-002"))
		flush(t, bus)
	}

	b := New(reader, bus, logger.NewDiscard())
	require.NoError(t, b.Open(context.Background()))
	defer b.Close()

	assert.Equal(t, []string{"20260302-001", "20260302-002"}, numbers(b.Rows()))
}

func TestBoardStatusFilter(t *testing.T) {
	bus := newTestBus(t)
	reader := newFakeReader()
	draft := newRequest(t, "20260302-001", "Alice")
	reader.put(draft)

	b := New(reader, bus, logger.NewDiscard(), WithStatuses(vo.StatusDraft))
	require.NoError(t, b.Open(context.Background()))
	defer b.Close()
	require.Equal(t, 1, b.Len())
	assert.Equal(t, []vo.Status{vo.StatusDraft}, reader.lists[0].Statuses)

	reader.put(advanced(t, draft, vo.StatusCancelled))
	bus.Publish(events.New(events.KindUpdated, "20260302-001"))
	flush(t, bus)

	assert.Zero(t, b.Len())
}

func TestBoardIgnoresOlderVersions(t *testing.T) {
	bus := newTestBus(t)
	reader := newFakeReader()
	draft := newRequest(t, "20260302-001", "Alice")
	reader.put(advanced(t, draft, vo.StatusSubmitted))

	b := New(reader, bus, logger.NewDiscard())
	require.NoError(t, b.Open(context.Background()))
	defer b.Close()

	reader.put(draft)
	require.NoError(t, b.apply(events.New(events.KindUpdated, "20260302-001")))

	got, _ := b.Get("20260302-001")
	assert.Equal(t, 2, got.Version())
}

func TestBoardClose(t *testing.T) {
	bus := newTestBus(t)
	reader := newFakeReader()

	b := New(reader, bus, logger.NewDiscard())
	require.NoError(t, b.Open(context.Background()))
	assert.ErrorIs(t, b.Open(context.Background()), ErrAlreadyOpen)
	assert.Equal(t, 1, bus.SubscriberCount())

	b.Close()
	assert.Zero(t, bus.SubscriberCount())

	reader.put(newRequest(t, "20260302-001", "Alice"))
	bus.Publish(events.New(events.KindCreated, "20260302-001"))
	flush(t, bus)
	assert.Zero(t, b.Len())
}

func TestBoardOpenFailureUnsubscribes(t *testing.T) {
	bus := newTestBus(t)
	reader := newFakeReader()
	reader.listErr = errors.New("store down")

	b := New(reader, bus, logger.NewDiscard())
	assert.Error(t, b.Open(context.Background()))
	assert.Zero(t, bus.SubscriberCount())

	reader.listErr = nil
	assert.NoError(t, b.Open(context.Background()))
	b.Close()
}
