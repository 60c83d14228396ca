package request

import (
	"context"

	"kreltrack/internal/application/request/validation"
	"kreltrack/internal/domain/audit"
	pvo "kreltrack/internal/domain/permission/value_objects"
	"kreltrack/internal/domain/request"
	"kreltrack/internal/domain/shared/events"
	"kreltrack/internal/domain/user"
	"kreltrack/internal/shared/db"
	apperrors "kreltrack/internal/shared/errors"
)

// Create validates candidate, assigns the next number for the business day
// and commits the request with its audit entry. created is published after
// commit.
func (s *Service) Create(ctx context.Context, candidate request.Patch, actor user.Actor) (string, error) {
	if err := s.authz.Authorize(ctx, actor, pvo.ResourceRequest, pvo.ActionCreate); err != nil {
		return "", err
	}

	candidate.MapText(s.text.Plain)
	if err := s.validate(ctx, candidate, validation.ModeCreate, nil); err != nil {
		s.logger.Debugw("request rejected", "user", actor.Username, "error", err)
		return "", err
	}

	// one number at a time; the sequence is read from the store
	unlockCreate, err := s.lock(ctx, createKey)
	if err != nil {
		return "", err
	}
	defer unlockCreate()

	storeCtx, cancel := db.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	var (
		number string
		unlock func()
	)
	defer func() {
		if unlock != nil {
			unlock()
		}
	}()

	err = s.tx.RunInTransaction(storeCtx, func(txCtx context.Context) error {
		now := s.clock()
		next, err := s.numbers.Next(txCtx, now)
		if err != nil {
			return err
		}
		number = next
		if unlock == nil {
			if unlock, err = s.locks.Lock(txCtx, number); err != nil {
				return err
			}
		}

		r, err := request.NewRequest(number, actor.Username, now)
		if err != nil {
			return apperrors.NewInternalError("failed to start request", err.Error())
		}
		if err := r.Apply(candidate); err != nil {
			return apperrors.NewValidationError(err.Error())
		}
		if err := s.checkReferences(txCtx, r, referencedFields(candidate)); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, r); err != nil {
			return err
		}

		return s.audit.Record(txCtx, audit.Entry{
			Entity:    audit.EntityRequest,
			EntityKey: number,
			Action:    audit.ActionCreate,
			Actor:     actor.Username,
			Details:   createdDetails(r, candidate),
			At:        now,
		})
	})
	if err != nil {
		s.logger.Warnw("request create failed", "number", number, "user", actor.Username, "error", err)
		return "", translateStoreError(number, "failed to save request", err)
	}

	s.publisher.Publish(events.New(events.KindCreated, number))
	s.logger.Infow("request created", "number", number, "user", actor.Username)
	return number, nil
}

// referencedFields adds status to the submitted fields: an omitted status
// defaults to Draft, which still has to be an active lookup entry.
func referencedFields(p request.Patch) []string {
	fields := p.Changed()
	for _, name := range fields {
		if name == request.FieldStatus {
			return fields
		}
	}
	return append(fields, request.FieldStatus)
}

func createdDetails(r *request.Request, p request.Patch) map[string]interface{} {
	details := make(map[string]interface{})
	for _, name := range p.Changed() {
		details[name] = r.FieldValue(name)
	}
	return details
}
