// Package audit describes the trail of committed writes.
package audit

import (
	"context"
	"time"
)

// Entities and actions recorded in the trail.
const (
	EntityRequest   = "request"
	EntityLookup    = "lookup"
	EntityEquipment = "equipment"
	EntityUser      = "user"

	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionHardDelete = "hard_delete"
	ActionLogin      = "login"
	ActionPassword   = "password_change"
)

// Entry describes one committed write.
type Entry struct {
	Entity    string
	EntityKey string
	Action    string
	Actor     string
	Details   map[string]interface{}
	At        time.Time
}

// Recorder writes entries. Callers pass the transaction context of the write
// being described so the entry commits or rolls back with it.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

type Repository interface {
	Recorder
	History(ctx context.Context, entity, key string) ([]Entry, error)
}
