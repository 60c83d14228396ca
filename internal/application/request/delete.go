package request

import (
	"context"

	"kreltrack/internal/domain/audit"
	pvo "kreltrack/internal/domain/permission/value_objects"
	"kreltrack/internal/domain/shared/events"
	"kreltrack/internal/domain/user"
	"kreltrack/internal/shared/db"
)

// Delete removes a request under the configured policy. Soft deletes keep
// the row so its number is never handed out again.
func (s *Service) Delete(ctx context.Context, number string, actor user.Actor) error {
	if err := s.authz.Authorize(ctx, actor, pvo.ResourceRequest, pvo.ActionDelete); err != nil {
		return err
	}

	unlock, err := s.lock(ctx, number)
	if err != nil {
		return err
	}
	defer unlock()

	hard := s.deletePolicy == DeleteHard
	action := audit.ActionDelete
	if hard {
		action = audit.ActionHardDelete
	}

	storeCtx, cancel := db.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err = s.tx.RunInTransaction(storeCtx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, number, hard); err != nil {
			return err
		}
		return s.audit.Record(txCtx, audit.Entry{
			Entity:    audit.EntityRequest,
			EntityKey: number,
			Action:    action,
			Actor:     actor.Username,
			At:        s.clock(),
		})
	})
	if err != nil {
		s.logger.Warnw("request delete failed", "number", number, "user", actor.Username, "error", err)
		return translateStoreError(number, "failed to delete request", err)
	}

	s.publisher.Publish(events.New(events.KindDeleted, number))
	s.logger.Infow("request deleted", "number", number, "policy", s.deletePolicy, "user", actor.Username)
	return nil
}
