package permission

import (
	"fmt"
	"sort"
	"strings"
)

// RoleMarkerPrefix prefixes the role-derived marker added to a user's
// authority set for each held role.
const RoleMarkerPrefix = "ROLE_"

// AdminRole holders pass every permission check.
const AdminRole = RoleMarkerPrefix + "ADMIN"

// Registry holds the role -> permission lookup table. It is populated once
// during engine construction and read-only afterwards, so it needs no
// locking.
type Registry struct {
	roles map[string][]string
}

// NewRegistry builds a Registry from role name to permission names. Role
// and permission names are upper-cased; empty entries are rejected.
func NewRegistry(roles map[string][]string) (*Registry, error) {
	normalized := make(map[string][]string, len(roles))
	for role, perms := range roles {
		role = strings.ToUpper(strings.TrimSpace(role))
		if role == "" {
			return nil, fmt.Errorf("empty role name")
		}
		set := make([]string, 0, len(perms))
		for _, p := range perms {
			p = strings.ToUpper(strings.TrimSpace(p))
			if p == "" {
				return nil, fmt.Errorf("role %s has an empty permission", role)
			}
			set = append(set, p)
		}
		normalized[role] = set
	}
	return &Registry{roles: normalized}, nil
}

// Resolve computes the effective authority set for the held roles: the
// union of all permissions across the roles plus one ROLE_ marker per role.
// Unknown roles contribute only their marker. The result is sorted and
// deduplicated.
func (r *Registry) Resolve(roles []string) []string {
	union := make(map[string]struct{})
	for _, role := range roles {
		role = strings.ToUpper(strings.TrimSpace(role))
		if role == "" {
			continue
		}
		union[RoleMarkerPrefix+role] = struct{}{}
		for _, p := range r.roles[role] {
			union[p] = struct{}{}
		}
	}

	authorities := make([]string, 0, len(union))
	for a := range union {
		authorities = append(authorities, a)
	}
	sort.Strings(authorities)
	return authorities
}

// KnownRole reports whether the role was registered.
func (r *Registry) KnownRole(role string) bool {
	_, ok := r.roles[strings.ToUpper(strings.TrimSpace(role))]
	return ok
}

// Has reports whether the authority set satisfies the required permission.
// AdminRole is an explicit role-level override.
func Has(authorities []string, required string) bool {
	for _, a := range authorities {
		if a == required || a == AdminRole {
			return true
		}
	}
	return false
}

// HasAny reports whether the authority set satisfies at least one of the
// required permissions.
func HasAny(authorities []string, required ...string) bool {
	for _, r := range required {
		if Has(authorities, r) {
			return true
		}
	}
	return false
}
