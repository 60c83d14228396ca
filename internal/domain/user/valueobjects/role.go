package valueobjects

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleOperator Role = "operator"
	RoleEngineer Role = "engineer"
	RoleManager  Role = "manager"
	RoleSuper    Role = "super"
)

var roleRanks = map[Role]int{
	RoleOperator: 1,
	RoleEngineer: 2,
	RoleManager:  3,
	RoleSuper:    4,
}

// AllRoles lists roles from least to most privileged.
var AllRoles = []Role{RoleOperator, RoleEngineer, RoleManager, RoleSuper}

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	_, ok := roleRanks[r]
	return ok
}

// AtLeast reports whether r carries every right of other.
func (r Role) AtLeast(other Role) bool {
	return roleRanks[r] >= roleRanks[other] && r.IsValid()
}

// NewRole accepts any letter case, e.g. "Engineer".
func NewRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("invalid role: %s", s)
	}
	return r, nil
}
