package request

import (
	"context"
	"errors"
	"time"

	vo "kreltrack/internal/domain/request/valueobjects"
)

var (
	ErrNotFound        = errors.New("request not found")
	ErrVersionConflict = errors.New("request was modified concurrently")
)

type Repository interface {
	SequenceSource

	Create(ctx context.Context, r *Request) error
	// Update persists r if the stored version is r.Version()-1, otherwise
	// returns ErrVersionConflict.
	Update(ctx context.Context, r *Request) error
	// Delete removes the request; soft deletes keep the row for numbering.
	Delete(ctx context.Context, number string, hard bool) error
	GetByNumber(ctx context.Context, number string) (*Request, error)
	List(ctx context.Context, filter Filter) ([]*Request, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	CountByStatus(ctx context.Context) (map[vo.Status]int64, error)
	DistinctRequesters(ctx context.Context) ([]string, error)
}

// Filter narrows List and Count. Zero values mean no constraint.
type Filter struct {
	Numbers   []string
	Requester string
	Statuses  []vo.Status
	Factory   string
	Project   string
	Phase     string
	Category  string
	Equipment []string
	// request date range, inclusive
	From *time.Time
	To   *time.Time
	// plan or actual start inside the window
	WindowStart *time.Time
	WindowEnd   *time.Time
	Search      string
	SortBy      string
	SortOrder   string
	Limit       int
	Offset      int
}
