package request

import (
	"context"
	"time"

	"kreltrack/internal/domain/request"
	vo "kreltrack/internal/domain/request/valueobjects"
	"kreltrack/internal/shared/biztime"
	"kreltrack/internal/shared/db"
)

func (s *Service) Get(ctx context.Context, number string) (*request.Request, error) {
	return s.load(ctx, number)
}

// List returns the requests matching filter. It publishes nothing and stops
// when ctx is cancelled.
func (s *Service) List(ctx context.Context, filter request.Filter) ([]*request.Request, error) {
	storeCtx, cancel := db.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	list, err := s.repo.List(storeCtx, filter)
	if err != nil {
		return nil, translateStoreError("", "failed to list requests", err)
	}
	return list, nil
}

func (s *Service) Count(ctx context.Context, filter request.Filter) (int64, error) {
	storeCtx, cancel := db.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	n, err := s.repo.Count(storeCtx, filter)
	if err != nil {
		return 0, translateStoreError("", "failed to count requests", err)
	}
	return n, nil
}

// ListByDateRange lists requests whose request date falls on a business day
// between from and to inclusive, optionally for one requester.
func (s *Service) ListByDateRange(ctx context.Context, from, to time.Time, requester string) ([]*request.Request, error) {
	start := biztime.StartOfDayUTC(from)
	end := biztime.EndOfDayUTC(to)
	return s.List(ctx, request.Filter{From: &start, To: &end, Requester: requester})
}

func (s *Service) ListByStatus(ctx context.Context, statuses ...vo.Status) ([]*request.Request, error) {
	return s.List(ctx, request.Filter{Statuses: statuses})
}

func (s *Service) ListByEquipment(ctx context.Context, controlNos ...string) ([]*request.Request, error) {
	return s.List(ctx, request.Filter{Equipment: controlNos})
}

// GanttWindow lists requests whose plan or actual start lies inside
// [start, end], limited to the given equipment when any is named.
func (s *Service) GanttWindow(ctx context.Context, start, end time.Time, equipment []string) ([]*request.Request, error) {
	return s.List(ctx, request.Filter{
		WindowStart: &start,
		WindowEnd:   &end,
		Equipment:   equipment,
		SortBy:      "plan_start",
		SortOrder:   "asc",
	})
}

func (s *Service) CountByStatus(ctx context.Context) (map[vo.Status]int64, error) {
	storeCtx, cancel := db.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	counts, err := s.repo.CountByStatus(storeCtx)
	if err != nil {
		return nil, translateStoreError("", "failed to count requests", err)
	}
	return counts, nil
}

func (s *Service) DistinctRequesters(ctx context.Context) ([]string, error) {
	storeCtx, cancel := db.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	names, err := s.repo.DistinctRequesters(storeCtx)
	if err != nil {
		return nil, translateStoreError("", "failed to list requesters", err)
	}
	return names, nil
}
