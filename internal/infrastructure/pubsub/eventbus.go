// Package pubsub distributes committed changes to in-process subscribers.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"kreltrack/internal/domain/shared/events"
	"kreltrack/internal/shared/goroutine"
	"kreltrack/internal/shared/logger"
)

const DefaultMailboxSize = 256

var (
	ErrBusClosed  = errors.New("event bus is closed")
	ErrNilHandler = errors.New("handler cannot be nil")
)

var _ events.Bus = (*EventBus)(nil)

// EventBus fans events out to subscribers. Every asynchronous subscriber owns
// a FIFO mailbox drained by its own goroutine, so events published in order
// reach it in that order. A full mailbox drops the event for that subscriber
// only. Nothing is persisted or replayed.
type EventBus struct {
	log         logger.Interface
	mailboxSize int

	mu     sync.RWMutex
	subs   []*subscriber
	closed bool

	wg      sync.WaitGroup
	dropped atomic.Int64
}

func NewEventBus(log logger.Interface, mailboxSize int) *EventBus {
	if mailboxSize <= 0 {
		mailboxSize = DefaultMailboxSize
	}
	return &EventBus{
		log:         log.Named("eventbus"),
		mailboxSize: mailboxSize,
	}
}

type subscriber struct {
	id        string
	name      string
	predicate events.Predicate
	handler   events.Handler
	sync      bool

	mailbox chan events.Event
	done    chan struct{}
	stop    sync.Once

	// serialises inline deliveries so a synchronous subscriber also sees publish order
	inline  sync.Mutex
	pending atomic.Int64
}

func (s *subscriber) ID() string   { return s.id }
func (s *subscriber) Name() string { return s.name }

// Subscribe registers handler for events matching predicate.
func (b *EventBus) Subscribe(predicate events.Predicate, handler events.Handler, opts ...events.SubscribeOption) (events.Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	options := events.SubscribeOptions{MailboxSize: b.mailboxSize}
	for _, opt := range opts {
		opt(&options)
	}
	if options.MailboxSize <= 0 {
		options.MailboxSize = b.mailboxSize
	}

	s := &subscriber{
		id:        uuid.NewString(),
		name:      options.Name,
		predicate: predicate,
		handler:   handler,
		sync:      options.Synchronous,
		done:      make(chan struct{}),
	}
	if s.name == "" {
		s.name = s.id[:8]
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}

	if !s.sync {
		s.mailbox = make(chan events.Event, options.MailboxSize)
		b.wg.Add(1)
		goroutine.SafeGo(b.log, "eventbus-subscriber-"+s.name, func() {
			defer b.wg.Done()
			b.drain(s)
		})
	}

	next := make([]*subscriber, len(b.subs), len(b.subs)+1)
	copy(next, b.subs)
	b.subs = append(next, s)

	b.log.Debugw("subscriber registered", "subscriber", s.name, "synchronous", s.sync)
	return s, nil
}

// Unsubscribe stops delivery to sub. Events still queued for it are discarded.
// It reports whether the subscription was active.
func (b *EventBus) Unsubscribe(sub events.Subscription) bool {
	if sub == nil {
		return false
	}

	b.mu.Lock()
	var found *subscriber
	next := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if s.id == sub.ID() {
			found = s
			continue
		}
		next = append(next, s)
	}
	b.subs = next
	b.mu.Unlock()

	if found == nil {
		return false
	}
	found.stop.Do(func() { close(found.done) })
	b.log.Debugw("subscriber removed", "subscriber", found.name)
	return true
}

// Publish hands event to every matching subscriber. It never blocks on a
// slow subscriber and never reports handler failures.
func (b *EventBus) Publish(event events.Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := b.subs
	b.mu.RUnlock()

	for _, s := range subs {
		if !b.matches(s, event) {
			continue
		}
		if s.sync {
			b.deliverInline(s, event)
			continue
		}
		b.enqueue(s, event)
	}
}

func (b *EventBus) matches(s *subscriber, event events.Event) (ok bool) {
	if s.predicate == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorw("subscriber predicate panicked",
				"subscriber", s.name,
				"kind", event.Kind,
				"panic", fmt.Sprintf("%v", r),
			)
			ok = false
		}
	}()
	return s.predicate(event)
}

func (b *EventBus) enqueue(s *subscriber, event events.Event) {
	select {
	case <-s.done:
		return
	default:
	}

	s.pending.Add(1)
	select {
	case s.mailbox <- event:
	default:
		s.pending.Add(-1)
		b.dropped.Add(1)
		b.log.Warnw("subscriber mailbox full, event dropped",
			"subscriber", s.name,
			"kind", event.Kind,
			"subject", event.Subject,
		)
	}
}

func (b *EventBus) drain(s *subscriber) {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.mailbox:
			select {
			case <-s.done:
				return
			default:
			}
			b.deliver(s, event)
			s.pending.Add(-1)
		}
	}
}

func (b *EventBus) deliverInline(s *subscriber, event events.Event) {
	s.inline.Lock()
	defer s.inline.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	b.deliver(s, event)
}

// deliver runs one handler; panics and errors stay with the subscriber.
func (b *EventBus) deliver(s *subscriber, event events.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorw("event handler panicked",
				"subscriber", s.name,
				"kind", event.Kind,
				"subject", event.Subject,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()

	if err := s.handler(event); err != nil {
		b.log.Warnw("event handler failed",
			"subscriber", s.name,
			"kind", event.Kind,
			"subject", event.Subject,
			"error", err,
		)
	}
}

// Flush waits until every mailbox queued before the call has been handled.
func (b *EventBus) Flush(ctx context.Context) error {
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()
	for {
		if b.idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *EventBus) idle() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if s.pending.Load() > 0 {
			return false
		}
	}
	return true
}

// SubscriberCount returns the number of active subscriptions.
func (b *EventBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were lost to full mailboxes.
func (b *EventBus) Dropped() int64 {
	return b.dropped.Load()
}

// Close removes every subscriber and waits for in-flight handlers to return.
func (b *EventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, s := range subs {
		s.stop.Do(func() { close(s.done) })
	}
	b.wg.Wait()
	b.log.Infow("event bus closed", "dropped", b.dropped.Load())
}
