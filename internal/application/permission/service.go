// Package permission turns role grants into authorization decisions for the
// application services.
package permission

import (
	"context"
	"fmt"
	"sort"

	"kreltrack/internal/domain/permission"
	vo "kreltrack/internal/domain/permission/value_objects"
	"kreltrack/internal/domain/user"
	"kreltrack/internal/shared/errors"
	"kreltrack/internal/shared/logger"
)

// Authorizer is what the write paths depend on.
type Authorizer interface {
	Authorize(ctx context.Context, actor user.Actor, resource vo.Resource, action vo.Action) error
}

var _ Authorizer = (*Service)(nil)

type Service struct {
	enforcer permission.PermissionEnforcer
	logger   logger.Interface
}

func NewService(enforcer permission.PermissionEnforcer, logger logger.Interface) *Service {
	return &Service{
		enforcer: enforcer,
		logger:   logger,
	}
}

// Authorize returns an unauthorized error when actor carries no identity and
// a forbidden error when its role lacks the grant.
func (s *Service) Authorize(ctx context.Context, actor user.Actor, resource vo.Resource, action vo.Action) error {
	if !actor.Valid() {
		return errors.NewMissingIdentityError()
	}

	allowed, err := s.enforcer.Enforce(actor.Role.String(), resource, action)
	if err != nil {
		return errors.NewInternalError("permission check failed", err.Error())
	}
	if !allowed {
		s.logger.Warnw("permission denied",
			"user", actor.Username,
			"role", actor.Role,
			"resource", resource,
			"action", action)
		return errors.NewForbiddenError(fmt.Sprintf("%s may not %s %s", actor.Role, action, resource))
	}
	return nil
}

// CheckPermission reports the decision without turning it into an error.
func (s *Service) CheckPermission(ctx context.Context, actor user.Actor, resource vo.Resource, action vo.Action) (bool, error) {
	if !actor.Valid() {
		return false, nil
	}
	return s.enforcer.Enforce(actor.Role.String(), resource, action)
}

// GrantsFor lists every grant that applies to role, inherited ones included,
// ordered by resource and action. The Role of an inherited grant is the role
// that holds it.
func (s *Service) GrantsFor(role string) ([]permission.Grant, error) {
	rows, err := s.enforcer.GetPermissionsForRole(role)
	if err != nil {
		return nil, err
	}

	grants := make([]permission.Grant, 0, len(rows))
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		resource, action, err := vo.ParseGrant(row[1], row[2])
		if err != nil {
			s.logger.Warnw("ignoring unknown policy row", "row", row, "error", err)
			continue
		}
		grants = append(grants, permission.Grant{Role: row[0], Resource: resource, Action: action})
	}

	rank := make(map[vo.Resource]int, len(vo.AllResources))
	for i, r := range vo.AllResources {
		rank[r] = i
	}
	sort.Slice(grants, func(i, j int) bool {
		if grants[i].Resource != grants[j].Resource {
			return rank[grants[i].Resource] < rank[grants[j].Resource]
		}
		return grants[i].Action < grants[j].Action
	})
	return grants, nil
}
