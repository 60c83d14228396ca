// Package events defines the change notifications exchanged between the
// request core and the views that mirror it.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies what changed.
type Kind string

const (
	KindCreated          Kind = "created"
	KindUpdated          Kind = "updated"
	KindDeleted          Kind = "deleted"
	KindEquipmentChanged Kind = "equipment-changed"
	KindLookupChanged    Kind = "lookup-changed"
)

// IsRequestKind reports whether events of this kind carry a request number as subject.
func (k Kind) IsRequestKind() bool {
	return k == KindCreated || k == KindUpdated || k == KindDeleted
}

// Event is an immutable notification of a committed change. Subject is the
// request number for request kinds, the control number for equipment and
// the lookup table name otherwise.
type Event struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurred_at"`
}

func New(kind Kind, subject string) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
	}
}

// Handler consumes one event. A returned error is logged by the bus and
// never reaches the publisher.
type Handler func(Event) error

// Predicate selects the events a subscriber wants. A nil predicate matches all.
type Predicate func(Event) bool

func ForKinds(kinds ...Kind) Predicate {
	set := make(map[Kind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return func(e Event) bool {
		_, ok := set[e.Kind]
		return ok
	}
}

func ForSubject(subject string) Predicate {
	return func(e Event) bool { return e.Subject == subject }
}

// RequestEvents matches created, updated and deleted.
func RequestEvents() Predicate {
	return func(e Event) bool { return e.Kind.IsRequestKind() }
}

// SubscribeOptions tunes delivery for one subscriber.
type SubscribeOptions struct {
	Name        string
	Synchronous bool
	MailboxSize int
}

type SubscribeOption func(*SubscribeOptions)

func WithName(name string) SubscribeOption {
	return func(o *SubscribeOptions) { o.Name = name }
}

// WithSynchronous delivers on the publisher's goroutine instead of a mailbox.
func WithSynchronous() SubscribeOption {
	return func(o *SubscribeOptions) { o.Synchronous = true }
}

func WithMailboxSize(n int) SubscribeOption {
	return func(o *SubscribeOptions) { o.MailboxSize = n }
}

// Subscription is the handle returned by Subscribe.
type Subscription interface {
	ID() string
	Name() string
}

type Publisher interface {
	Publish(event Event)
}

type Subscriber interface {
	Subscribe(predicate Predicate, handler Handler, opts ...SubscribeOption) (Subscription, error)
	Unsubscribe(sub Subscription) bool
}

type Bus interface {
	Publisher
	Subscriber
}
