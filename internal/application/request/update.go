package request

import (
	"context"
	"fmt"

	"kreltrack/internal/application/request/validation"
	"kreltrack/internal/domain/audit"
	pvo "kreltrack/internal/domain/permission/value_objects"
	"kreltrack/internal/domain/request"
	"kreltrack/internal/domain/shared/events"
	"kreltrack/internal/domain/user"
	"kreltrack/internal/shared/db"
	apperrors "kreltrack/internal/shared/errors"
)

type updateOptions struct {
	expectedVersion int
}

type UpdateOption func(*updateOptions)

// WithExpectedVersion fails the update with a conflict unless the stored
// request is still at version v.
func WithExpectedVersion(v int) UpdateOption {
	return func(o *updateOptions) { o.expectedVersion = v }
}

// Update applies patch to the stored request. A concurrent change surfaces
// as a ConflictError and is never retried here.
func (s *Service) Update(ctx context.Context, number string, patch request.Patch, actor user.Actor, opts ...UpdateOption) (*request.Request, error) {
	if err := s.authz.Authorize(ctx, actor, pvo.ResourceRequest, pvo.ActionUpdate); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, apperrors.NewValidationError("no fields to update")
	}

	var o updateOptions
	for _, opt := range opts {
		opt(&o)
	}

	patch.MapText(s.text.Plain)

	unlock, err := s.lock(ctx, number)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.load(ctx, number)
	if err != nil {
		return nil, err
	}
	if o.expectedVersion > 0 && current.Version() != o.expectedVersion {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("request %s was changed by someone else, reload and retry", number),
			fmt.Sprintf("expected version %d, found %d", o.expectedVersion, current.Version()),
		)
	}

	if err := s.validate(ctx, patch, validation.ModeUpdate, current); err != nil {
		return nil, err
	}

	before := make(map[string]string)
	for _, name := range patch.Changed() {
		before[name] = current.FieldValue(name)
	}

	updated := current
	if err := updated.Apply(patch); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	now := s.clock()
	updated.MarkUpdated(actor.Username, now)

	details := make(map[string]interface{})
	for _, name := range patch.Changed() {
		after := updated.FieldValue(name)
		if after != before[name] {
			details[name] = map[string]string{"from": before[name], "to": after}
		}
	}

	storeCtx, cancel := db.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err = s.tx.RunInTransaction(storeCtx, func(txCtx context.Context) error {
		if err := s.checkReferences(txCtx, updated, patch.Changed()); err != nil {
			return err
		}
		if err := s.repo.Update(txCtx, updated); err != nil {
			return err
		}
		return s.audit.Record(txCtx, audit.Entry{
			Entity:    audit.EntityRequest,
			EntityKey: number,
			Action:    audit.ActionUpdate,
			Actor:     actor.Username,
			Details:   details,
			At:        now,
		})
	})
	if err != nil {
		s.logger.Warnw("request update failed", "number", number, "user", actor.Username, "error", err)
		return nil, translateStoreError(number, "failed to save request", err)
	}

	s.publisher.Publish(events.New(events.KindUpdated, number))
	s.logger.Infow("request updated", "number", number, "version", updated.Version(), "user", actor.Username)
	return updated, nil
}

func (s *Service) load(ctx context.Context, number string) (*request.Request, error) {
	storeCtx, cancel := db.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	r, err := s.repo.GetByNumber(storeCtx, number)
	if err != nil {
		return nil, translateStoreError(number, "failed to load request", err)
	}
	return r, nil
}
