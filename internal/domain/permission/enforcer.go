// Package permission describes what each role may do.
package permission

import (
	vo "kreltrack/internal/domain/permission/value_objects"
)

// PermissionEnforcer answers role checks. Subjects are role names; a role
// inherits every grant of the roles it is linked to.
type PermissionEnforcer interface {
	Enforce(subject string, resource vo.Resource, action vo.Action) (bool, error)
	AddPolicy(role string, resource vo.Resource, action vo.Action) error
	RemovePolicy(role string, resource vo.Resource, action vo.Action) error
	AddRoleInheritance(role string, inherits string) error
	GetPermissionsForRole(role string) ([][]string, error)
	LoadPolicy() error
}

// Grant is one allowed (role, resource, action) triple.
type Grant struct {
	Role     string
	Resource vo.Resource
	Action   vo.Action
}
