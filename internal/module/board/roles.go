package board

import "sort"

// Role is a caller's board-scoped authority level.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Permission names an action on a board.
type Permission string

const (
	PermBoardRead   Permission = "board:read"
	PermBoardUpdate Permission = "board:update"
	PermBoardDelete Permission = "board:delete"

	PermMemberRead   Permission = "member:read"
	PermMemberAdd    Permission = "member:add"
	PermMemberUpdate Permission = "member:update"
	PermMemberRemove Permission = "member:remove"

	PermContentRead   Permission = "content:read"
	PermContentCreate Permission = "content:create"
	PermContentUpdate Permission = "content:update"
	PermContentDelete Permission = "content:delete"
)

var allPermissions = []Permission{
	PermBoardRead, PermBoardUpdate, PermBoardDelete,
	PermMemberRead, PermMemberAdd, PermMemberUpdate, PermMemberRemove,
	PermContentRead, PermContentCreate, PermContentUpdate, PermContentDelete,
}

type permissionSet map[Permission]struct{}

func newPermissionSet(perms ...Permission) permissionSet {
	set := make(permissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// rolePermissions is read-only after init; callers only get copies.
var rolePermissions = map[Role]permissionSet{
	RoleOwner: newPermissionSet(allPermissions...),
	RoleAdmin: newPermissionSet(
		PermBoardRead, PermBoardUpdate,
		PermMemberRead, PermMemberAdd, PermMemberUpdate, PermMemberRemove,
		PermContentRead, PermContentCreate, PermContentUpdate, PermContentDelete,
	),
	RoleMember: newPermissionSet(
		PermBoardRead,
		PermMemberRead,
		PermContentRead, PermContentCreate, PermContentUpdate, PermContentDelete,
	),
	RoleViewer: newPermissionSet(PermBoardRead, PermMemberRead, PermContentRead),
}

// roleRank orders roles for delegation; viewer sits below member.
var roleRank = map[Role]int{
	RoleOwner:  3,
	RoleAdmin:  2,
	RoleMember: 1,
	RoleViewer: 0,
}

// AllRoles returns every role from highest to lowest rank.
func AllRoles() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleMember, RoleViewer}
}

// AllPermissions returns every permission.
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// IsValid checks if the role is known.
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// IsMembershipRole reports whether r can be stored on a membership row.
// Ownership is derived from the board, never assigned.
func (r Role) IsMembershipRole() bool {
	return r.IsValid() && r != RoleOwner
}

// Rank returns the role's position in the hierarchy, or -1 if unknown.
func (r Role) Rank() int {
	if rank, ok := roleRank[r]; ok {
		return rank
	}
	return -1
}

// HasPermission checks if a role has a specific permission.
func (r Role) HasPermission(perm Permission) bool {
	_, ok := rolePermissions[r][perm]
	return ok
}

// Permissions returns the role's permissions sorted by name.
func (r Role) Permissions() []Permission {
	set := rolePermissions[r]
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CanAssignRole reports whether a caller holding assigner may grant target.
// Owners may grant any role; admins only roles ranked strictly below admin.
func CanAssignRole(assigner, target Role) bool {
	if !target.IsValid() {
		return false
	}
	switch assigner {
	case RoleOwner:
		return true
	case RoleAdmin:
		return target.Rank() < RoleAdmin.Rank()
	default:
		return false
	}
}
