package token

import "sort"

// RoleMap maps a role name to the permissions it grants
type RoleMap map[string][]string

// PermissionSet is the derived set of capability flags for a session
type PermissionSet map[string]struct{}

type nullValue = struct{}

// Permissions derives the permission set from the token's explicit permissions
// plus every permission the role map grants to the token's roles
func Permissions(claims *Claims, roles RoleMap) PermissionSet {
	set := make(PermissionSet)
	if claims == nil {
		return set
	}
	for _, p := range claims.Permissions {
		set[p] = nullValue{}
	}
	for _, role := range claims.Roles {
		for _, p := range roles[role] {
			set[p] = nullValue{}
		}
	}
	return set
}

func (p PermissionSet) Has(permission string) bool {
	_, ok := p[permission]
	return ok
}

// List returns the permissions sorted
func (p PermissionSet) List() []string {
	list := make([]string, 0, len(p))
	for k := range p {
		list = append(list, k)
	}
	sort.Strings(list)
	return list
}
