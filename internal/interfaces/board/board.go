// Package board keeps a local, event-refreshed mirror of the request list for
// display surfaces.
package board

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"kreltrack/internal/domain/request"
	vo "kreltrack/internal/domain/request/valueobjects"
	"kreltrack/internal/domain/shared/events"
	apperrors "kreltrack/internal/shared/errors"
	"kreltrack/internal/shared/logger"
)

const defaultRefreshTimeout = 5 * time.Second

var ErrAlreadyOpen = errors.New("board is already open")

// Reader is the read side of the request service.
type Reader interface {
	Get(ctx context.Context, number string) (*request.Request, error)
	List(ctx context.Context, filter request.Filter) ([]*request.Request, error)
}

// Change describes one row the board added, replaced or removed. Request is
// nil when the row was removed.
type Change struct {
	Kind    events.Kind
	Number  string
	Request *request.Request
}

type Option func(*Board)

// WithStatuses limits the board to requests in the given states.
func WithStatuses(statuses ...vo.Status) Option {
	return func(b *Board) { b.statuses = statuses }
}

// WithOnChange registers a callback run after every applied change. It runs
// on the event delivery goroutine and must not block.
func WithOnChange(fn func(Change)) Option {
	return func(b *Board) { b.onChange = fn }
}

func WithRefreshTimeout(d time.Duration) Option {
	return func(b *Board) { b.refreshTimeout = d }
}

// Board mirrors the requests visible to one screen. It subscribes before its
// full read so nothing committed in between is missed; events that arrive
// during the read are replayed once the read completes.
type Board struct {
	reader Reader
	bus    events.Subscriber
	log    logger.Interface

	statuses       []vo.Status
	onChange       func(Change)
	refreshTimeout time.Duration

	mu      sync.RWMutex
	rows    map[string]*request.Request
	loading bool
	pending []events.Event
	sub     events.Subscription
}

func New(reader Reader, bus events.Subscriber, log logger.Interface, opts ...Option) *Board {
	b := &Board{
		reader:         reader,
		bus:            bus,
		log:            log.Named("board"),
		refreshTimeout: defaultRefreshTimeout,
		rows:           make(map[string]*request.Request),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open subscribes to request events and loads the current list.
func (b *Board) Open(ctx context.Context) error {
	b.mu.Lock()
	if b.sub != nil {
		b.mu.Unlock()
		return ErrAlreadyOpen
	}
	b.loading = true
	b.pending = nil
	b.mu.Unlock()

	sub, err := b.bus.Subscribe(events.RequestEvents(), b.handle, events.WithName("request-board"))
	if err != nil {
		b.mu.Lock()
		b.loading = false
		b.mu.Unlock()
		return err
	}

	list, err := b.reader.List(ctx, request.Filter{Statuses: b.statuses})
	if err != nil {
		b.bus.Unsubscribe(sub)
		b.mu.Lock()
		b.loading = false
		b.pending = nil
		b.mu.Unlock()
		return err
	}

	b.mu.Lock()
	b.sub = sub
	b.rows = make(map[string]*request.Request, len(list))
	for _, r := range list {
		b.rows[r.Number()] = r
	}
	missed := b.pending
	b.pending = nil
	b.loading = false
	b.mu.Unlock()

	for _, e := range missed {
		b.apply(e)
	}
	b.log.Infow("board opened", "rows", len(list), "replayed", len(missed))
	return nil
}

// Close stops listening for events. The rows stay readable.
func (b *Board) Close() {
	b.mu.Lock()
	sub := b.sub
	b.sub = nil
	b.mu.Unlock()
	if sub != nil {
		b.bus.Unsubscribe(sub)
	}
}

// Rows returns the mirrored requests ordered by number.
func (b *Board) Rows() []*request.Request {
	b.mu.RLock()
	out := make([]*request.Request, 0, len(b.rows))
	for _, r := range b.rows {
		out = append(out, r)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Number() < out[j].Number() })
	return out
}

func (b *Board) Get(number string) (*request.Request, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.rows[number]
	return r, ok
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rows)
}

func (b *Board) handle(e events.Event) error {
	b.mu.Lock()
	if b.loading {
		b.pending = append(b.pending, e)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()
	return b.apply(e)
}

// apply refreshes the row named by e from the reader.
func (b *Board) apply(e events.Event) error {
	if e.Kind == events.KindDeleted {
		b.remove(e.Kind, e.Subject)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.refreshTimeout)
	defer cancel()
	r, err := b.reader.Get(ctx, e.Subject)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			b.remove(events.KindDeleted, e.Subject)
			return nil
		}
		return err
	}
	if !b.visible(r) {
		b.remove(e.Kind, e.Subject)
		return nil
	}

	b.mu.Lock()
	if cur, ok := b.rows[r.Number()]; ok && cur.Version() > r.Version() {
		b.mu.Unlock()
		return nil
	}
	b.rows[r.Number()] = r
	b.mu.Unlock()

	b.notify(Change{Kind: e.Kind, Number: r.Number(), Request: r})
	return nil
}

func (b *Board) remove(kind events.Kind, number string) {
	b.mu.Lock()
	_, ok := b.rows[number]
	delete(b.rows, number)
	b.mu.Unlock()
	if ok {
		b.notify(Change{Kind: kind, Number: number})
	}
}

func (b *Board) visible(r *request.Request) bool {
	if len(b.statuses) == 0 {
		return true
	}
	for _, s := range b.statuses {
		if r.Status() == s {
			return true
		}
	}
	return false
}

func (b *Board) notify(c Change) {
	if b.onChange != nil {
		b.onChange(c)
	}
}
