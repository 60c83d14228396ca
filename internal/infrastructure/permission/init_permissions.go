package permission

import (
	"fmt"

	"kreltrack/internal/domain/permission"
	pvo "kreltrack/internal/domain/permission/value_objects"
	uvo "kreltrack/internal/domain/user/valueobjects"
	"kreltrack/internal/shared/logger"
)

// DefaultGrants lists what each role adds on top of the role below it.
func DefaultGrants() []permission.Grant {
	return []permission.Grant{
		{Role: uvo.RoleOperator.String(), Resource: pvo.ResourceRequest, Action: pvo.ActionRead},
		{Role: uvo.RoleOperator.String(), Resource: pvo.ResourceRequest, Action: pvo.ActionCreate},
		{Role: uvo.RoleOperator.String(), Resource: pvo.ResourceRequest, Action: pvo.ActionUpdate},
		{Role: uvo.RoleOperator.String(), Resource: pvo.ResourceLookup, Action: pvo.ActionRead},
		{Role: uvo.RoleOperator.String(), Resource: pvo.ResourceCSV, Action: pvo.ActionExport},

		{Role: uvo.RoleEngineer.String(), Resource: pvo.ResourceRequest, Action: pvo.ActionDelete},

		{Role: uvo.RoleManager.String(), Resource: pvo.ResourceLookup, Action: pvo.ActionWrite},
		{Role: uvo.RoleManager.String(), Resource: pvo.ResourceCSV, Action: pvo.ActionImport},

		{Role: uvo.RoleSuper.String(), Resource: pvo.ResourceUser, Action: pvo.ActionRead},
		{Role: uvo.RoleSuper.String(), Resource: pvo.ResourceUser, Action: pvo.ActionWrite},
	}
}

// InitDefaultPermissions seeds the grants and chains each role to the one
// below it. Existing rules are left untouched, so it is safe on every start.
func InitDefaultPermissions(enforcer permission.PermissionEnforcer, log logger.Interface) error {
	for _, g := range DefaultGrants() {
		if err := enforcer.AddPolicy(g.Role, g.Resource, g.Action); err != nil {
			log.Errorw("failed to add default permission policy",
				"error", err,
				"role", g.Role,
				"resource", g.Resource,
				"action", g.Action)
			return fmt.Errorf("failed to add policy [%s, %s, %s]: %w", g.Role, g.Resource, g.Action, err)
		}
	}

	for i := 1; i < len(uvo.AllRoles); i++ {
		role, below := uvo.AllRoles[i].String(), uvo.AllRoles[i-1].String()
		if err := enforcer.AddRoleInheritance(role, below); err != nil {
			return err
		}
	}

	log.Infow("default permissions initialized successfully")
	return nil
}
