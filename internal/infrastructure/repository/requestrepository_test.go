package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kreltrack/internal/domain/request"
	vo "kreltrack/internal/domain/request/valueobjects"
	"kreltrack/internal/infrastructure/persistence/testutil"
	apperrors "kreltrack/internal/shared/errors"
)

var testCreatedAt = time.Date(2024, 1, 10, 3, 0, 0, 0, time.UTC)

func newTestRequest(t *testing.T, number string, patch request.Patch) *request.Request {
	t.Helper()
	req, err := request.NewRequest(number, "alice", testCreatedAt)
	require.NoError(t, err)

	base := request.Patch{
		Requester: request.Set("Alice"),
		Factory:   request.Set("F1"),
		Project:   request.Set("P1"),
		Phase:     request.Set("EVT"),
		Category:  request.Set("Drop"),
		Equipment: request.Set("EQ-01"),
	}
	require.NoError(t, req.Apply(base))
	require.NoError(t, req.Apply(patch))
	return req
}

func TestRequestRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(testutil.NewSQLiteDB(t))

	req := newTestRequest(t, "20240110-001", request.Patch{
		Detail:    request.Set("drop from 1.2m"),
		Qty:       request.Set("3"),
		PlanStart: request.Set("2024-01-12 08:00"),
		PlanEnd:   request.Set("2024-01-13 17:30"),
	})
	require.NoError(t, repo.Create(ctx, req))
	assert.NotZero(t, req.ID())

	got, err := repo.GetByNumber(ctx, "20240110-001")
	require.NoError(t, err)
	assert.Equal(t, req.ID(), got.ID())
	assert.Equal(t, "Alice", got.Requester())
	assert.Equal(t, "EQ-01", got.Equipment())
	assert.Equal(t, 3, got.Qty())
	assert.Equal(t, vo.StatusDraft, got.Status())
	assert.Equal(t, vo.FinalResultNone, got.FinalResult())
	assert.Equal(t, 1, got.Version())
	require.NotNil(t, got.PlanStart())
	assert.True(t, req.PlanStart().Equal(*got.PlanStart()))
	assert.Nil(t, got.ActualStart())
	assert.True(t, testCreatedAt.Equal(got.CreatedAt()))

	_, err = repo.GetByNumber(ctx, "20240110-999")
	assert.ErrorIs(t, err, request.ErrNotFound)
}

func TestRequestRepositoryRejectsDuplicateNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(testutil.NewSQLiteDB(t))

	require.NoError(t, repo.Create(ctx, newTestRequest(t, "20240110-001", request.Patch{})))
	err := repo.Create(ctx, newTestRequest(t, "20240110-001", request.Patch{}))
	require.Error(t, err)
	assert.True(t, apperrors.IsDuplicateError(err))
}

func TestRequestRepositoryUpdateVersionGuard(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(testutil.NewSQLiteDB(t))
	require.NoError(t, repo.Create(ctx, newTestRequest(t, "20240110-001", request.Patch{})))

	first, err := repo.GetByNumber(ctx, "20240110-001")
	require.NoError(t, err)
	second, err := repo.GetByNumber(ctx, "20240110-001")
	require.NoError(t, err)

	require.NoError(t, first.Apply(request.Patch{Status: request.Set("Submitted")}))
	first.MarkUpdated("bob", testCreatedAt.Add(time.Hour))
	require.NoError(t, repo.Update(ctx, first))

	require.NoError(t, second.Apply(request.Patch{Note: request.Set("late edit")}))
	second.MarkUpdated("carol", testCreatedAt.Add(2*time.Hour))
	assert.ErrorIs(t, repo.Update(ctx, second), request.ErrVersionConflict)

	stored, err := repo.GetByNumber(ctx, "20240110-001")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version())
	assert.Equal(t, vo.StatusSubmitted, stored.Status())
	assert.Equal(t, "bob", stored.UpdatedBy())
	assert.Empty(t, stored.Note())
	assert.Equal(t, "alice", stored.CreatedBy())
}

func TestRequestRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(testutil.NewSQLiteDB(t))
	require.NoError(t, repo.Create(ctx, newTestRequest(t, "20240110-001", request.Patch{})))
	require.NoError(t, repo.Create(ctx, newTestRequest(t, "20240110-002", request.Patch{})))

	require.NoError(t, repo.Delete(ctx, "20240110-002", false))
	_, err := repo.GetByNumber(ctx, "20240110-002")
	assert.ErrorIs(t, err, request.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "20240110-002", false), request.ErrNotFound)

	// soft-deleted numbers still count for sequencing
	last, err := repo.LastNumberForDay(ctx, "20240110")
	require.NoError(t, err)
	assert.Equal(t, "20240110-002", last)

	require.NoError(t, repo.Delete(ctx, "20240110-002", true))
	last, err = repo.LastNumberForDay(ctx, "20240110")
	require.NoError(t, err)
	assert.Equal(t, "20240110-001", last)

	last, err = repo.LastNumberForDay(ctx, "20240111")
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestRequestRepositoryListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(testutil.NewSQLiteDB(t))

	fixtures := []*request.Request{
		newTestRequest(t, "20240110-001", request.Patch{
			Detail:    request.Set("load 100% rated"),
			PlanStart: request.Set("2024-01-12 08:00"),
		}),
		newTestRequest(t, "20240110-002", request.Patch{
			Requester: request.Set("Bob"),
			Detail:    request.Set("load 1000 rated"),
			Status:    request.Set("Submitted"),
			Equipment: request.Set("EQ-02"),
		}),
		newTestRequest(t, "20240110-003", request.Patch{
			Requester:   request.Set("Bob"),
			Status:      request.Set("Cancelled"),
			ActualStart: request.Set("2024-02-01 09:00"),
		}),
	}
	for _, req := range fixtures {
		require.NoError(t, repo.Create(ctx, req))
	}

	all, err := repo.List(ctx, request.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "20240110-001", all[0].Number())

	desc, err := repo.List(ctx, request.Filter{SortBy: "number", SortOrder: "desc", Limit: 2})
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, "20240110-003", desc[0].Number())

	// unknown sort columns fall back to number order
	safe, err := repo.List(ctx, request.Filter{SortBy: "number; DROP TABLE requests"})
	require.NoError(t, err)
	assert.Len(t, safe, 3)

	tests := []struct {
		name   string
		filter request.Filter
		want   []string
	}{
		{name: "requester", filter: request.Filter{Requester: "Bob"}, want: []string{"20240110-002", "20240110-003"}},
		{name: "statuses", filter: request.Filter{Statuses: []vo.Status{vo.StatusDraft, vo.StatusSubmitted}}, want: []string{"20240110-001", "20240110-002"}},
		{name: "equipment", filter: request.Filter{Equipment: []string{"EQ-02"}}, want: []string{"20240110-002"}},
		{name: "search escapes wildcards", filter: request.Filter{Search: "100%"}, want: []string{"20240110-001"}},
		{name: "search with other filters", filter: request.Filter{Search: "rated", Requester: "Bob"}, want: []string{"20240110-002"}},
		{name: "numbers", filter: request.Filter{Numbers: []string{"20240110-003"}}, want: []string{"20240110-003"}},
		{
			name: "gantt window",
			filter: request.Filter{
				WindowStart: timePtr(time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)),
				WindowEnd:   timePtr(time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)),
			},
			want: []string{"20240110-001", "20240110-003"},
		},
		{
			name: "gantt window with equipment",
			filter: request.Filter{
				WindowStart: timePtr(time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)),
				WindowEnd:   timePtr(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)),
				Equipment:   []string{"EQ-01"},
			},
			want: []string{"20240110-001"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, numbers(got))

			total, err := repo.Count(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), total)
		})
	}

	byStatus, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[vo.Status]int64{
		vo.StatusDraft:     1,
		vo.StatusSubmitted: 1,
		vo.StatusCancelled: 1,
	}, byStatus)

	requesters, err := repo.DistinctRequesters(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, requesters)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "a!%b!_c!!", escapeLike("a%b_c!"))
}

func numbers(reqs []*request.Request) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Number()
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	return &t
}
