package editor

import "strings"

// Capability decides whether a role may change diagram structure.
type Capability interface {
	CanEdit(roleID string) bool
}

// RoleSet grants edit capability to a fixed list of role ids.
type RoleSet map[string]struct{}

// NewRoleSet builds a RoleSet, ignoring blank entries.
func NewRoleSet(roles []string) RoleSet {
	rs := RoleSet{}
	for _, r := range roles {
		if r = strings.TrimSpace(r); r != "" {
			rs[r] = struct{}{}
		}
	}
	return rs
}

// CanEdit implements Capability.
func (rs RoleSet) CanEdit(roleID string) bool {
	_, ok := rs[strings.TrimSpace(roleID)]
	return ok
}
