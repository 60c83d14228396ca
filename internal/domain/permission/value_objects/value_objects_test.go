package value_objects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGrant(t *testing.T) {
	r, a, err := ParseGrant("csv", "import")
	require.NoError(t, err)
	assert.Equal(t, ResourceCSV, r)
	assert.Equal(t, ActionImport, a)

	tests := []struct {
		resource, action string
	}{
		{"", "read"},
		{"payments", "read"},
		{"csv", "delete"},
		{"request", "write"},
		{"lookup", ""},
	}
	for _, tt := range tests {
		_, _, err := ParseGrant(tt.resource, tt.action)
		assert.Error(t, err, "%s:%s", tt.resource, tt.action)
	}
}

func TestResourceActions(t *testing.T) {
	for _, r := range AllResources {
		assert.NotEmpty(t, r.Actions(), r.String())
	}
	assert.Nil(t, Resource("ticket").Actions())
	assert.True(t, ResourceRequest.Supports(ActionDelete))
	assert.False(t, ResourceUser.Supports(ActionDelete))
}
