package value_objects

import "fmt"

// Resource is something a role may be granted access to.
type Resource string

const (
	ResourceRequest Resource = "request"
	ResourceLookup  Resource = "lookup"
	ResourceCSV     Resource = "csv"
	ResourceUser    Resource = "user"
)

// Action is an operation on a Resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionWrite  Action = "write"
	ActionExport Action = "export"
	ActionImport Action = "import"
)

// Requests are edited field by field, lookup tables and accounts are
// administered as a whole, and CSV only moves data in or out.
var actionsByResource = map[Resource][]Action{
	ResourceRequest: {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
	ResourceLookup:  {ActionRead, ActionWrite},
	ResourceCSV:     {ActionImport, ActionExport},
	ResourceUser:    {ActionRead, ActionWrite},
}

// AllResources in display order.
var AllResources = []Resource{ResourceRequest, ResourceLookup, ResourceCSV, ResourceUser}

// ParseGrant checks that action is meaningful for resource.
func ParseGrant(resource, action string) (Resource, Action, error) {
	r := Resource(resource)
	if _, ok := actionsByResource[r]; !ok {
		return "", "", fmt.Errorf("invalid resource: %q", resource)
	}
	a := Action(action)
	if !r.Supports(a) {
		return "", "", fmt.Errorf("resource %s has no action %q", r, action)
	}
	return r, a, nil
}

// Actions returns the actions r understands, nil for an unknown resource.
func (r Resource) Actions() []Action {
	return actionsByResource[r]
}

func (r Resource) Supports(a Action) bool {
	for _, known := range actionsByResource[r] {
		if known == a {
			return true
		}
	}
	return false
}

func (r Resource) String() string {
	return string(r)
}

func (a Action) String() string {
	return string(a)
}
