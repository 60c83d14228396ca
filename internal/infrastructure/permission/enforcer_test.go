package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pvo "kreltrack/internal/domain/permission/value_objects"
	"kreltrack/internal/infrastructure/persistence/testutil"
	"kreltrack/internal/shared/logger"
)

func TestDefaultPermissionsFollowRoleLadder(t *testing.T) {
	gdb := testutil.NewSQLiteDB(t)
	log := logger.NewDiscard()

	enforcer, err := NewEnforcer(gdb, log)
	require.NoError(t, err)
	require.NoError(t, InitDefaultPermissions(enforcer, log))
	// seeding twice must not fail
	require.NoError(t, InitDefaultPermissions(enforcer, log))

	tests := []struct {
		role     string
		resource pvo.Resource
		action   pvo.Action
		want     bool
	}{
		{"operator", pvo.ResourceRequest, pvo.ActionCreate, true},
		{"operator", pvo.ResourceRequest, pvo.ActionDelete, false},
		{"operator", pvo.ResourceCSV, pvo.ActionImport, false},
		{"engineer", pvo.ResourceRequest, pvo.ActionUpdate, true},
		{"engineer", pvo.ResourceRequest, pvo.ActionDelete, true},
		{"engineer", pvo.ResourceLookup, pvo.ActionWrite, false},
		{"manager", pvo.ResourceLookup, pvo.ActionWrite, true},
		{"manager", pvo.ResourceRequest, pvo.ActionDelete, true},
		{"manager", pvo.ResourceUser, pvo.ActionWrite, false},
		{"super", pvo.ResourceUser, pvo.ActionWrite, true},
		{"super", pvo.ResourceRequest, pvo.ActionRead, true},
		{"stranger", pvo.ResourceRequest, pvo.ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"_"+tt.resource.String()+"_"+tt.action.String(), func(t *testing.T) {
			allowed, err := enforcer.Enforce(tt.role, tt.resource, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, allowed)
		})
	}

	// a fresh enforcer sees the persisted rules
	reloaded, err := NewEnforcer(gdb, log)
	require.NoError(t, err)
	allowed, err := reloaded.Enforce("super", pvo.ResourceLookup, pvo.ActionWrite)
	require.NoError(t, err)
	assert.True(t, allowed)

	perms, err := reloaded.GetPermissionsForRole("engineer")
	require.NoError(t, err)
	assert.Contains(t, perms, []string{"operator", "request", "read"})
}

func TestRemovePolicy(t *testing.T) {
	log := logger.NewDiscard()
	enforcer, err := NewEnforcer(testutil.NewSQLiteDB(t), log)
	require.NoError(t, err)

	require.NoError(t, enforcer.AddPolicy("operator", pvo.ResourceRequest, pvo.ActionRead))
	require.NoError(t, enforcer.RemovePolicy("operator", pvo.ResourceRequest, pvo.ActionRead))

	allowed, err := enforcer.Enforce("operator", pvo.ResourceRequest, pvo.ActionRead)
	require.NoError(t, err)
	assert.False(t, allowed)
}
