package rbac

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Role is the single coarse-grained role tag carried by every user.
type Role string

// Roles known to the dashboard.
const (
	RoleGlobalAdmin  Role = "global_admin"
	RoleStoreAdmin   Role = "store_admin"
	RoleStoreManager Role = "store_manager"
	RoleSalesPerson  Role = "sales_person"
)

// ErrUnknownRole is returned when a role tag is outside the closed set.
var ErrUnknownRole = errors.New("rbac: unknown role")

// ErrMalformedPermission is returned when a code is not of the resource:action shape.
var ErrMalformedPermission = errors.New("rbac: malformed permission")

// Roles lists every known role in display order.
func Roles() []Role {
	return []Role{RoleGlobalAdmin, RoleStoreAdmin, RoleStoreManager, RoleSalesPerson}
}

// ParseRole validates a wire role tag.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	for _, known := range Roles() {
		if role == known {
			return role, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
}

// Label returns a human readable role name.
func (r Role) Label() string {
	switch r {
	case RoleGlobalAdmin:
		return "Global Admin"
	case RoleStoreAdmin:
		return "Store Admin"
	case RoleStoreManager:
		return "Store Manager"
	case RoleSalesPerson:
		return "Sales Person"
	default:
		return string(r)
	}
}

// Permission is a resource:action capability code.
type Permission string

var permissionPattern = regexp.MustCompile(`^[a-z][a-z_]*:[a-z][a-z_]*$`)

// ParsePermission validates a wire permission code.
func ParsePermission(raw string) (Permission, error) {
	code := strings.TrimSpace(strings.ToLower(raw))
	if !permissionPattern.MatchString(code) {
		return "", fmt.Errorf("%w: %q", ErrMalformedPermission, raw)
	}
	return Permission(code), nil
}

// Resource returns the part before the colon.
func (p Permission) Resource() string {
	resource, _, _ := strings.Cut(string(p), ":")
	return resource
}

// Action returns the part after the colon.
func (p Permission) Action() string {
	_, action, _ := strings.Cut(string(p), ":")
	return action
}

// PermissionSet is an unordered collection of permission codes.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given codes.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// ParsePermissionSet converts wire strings, returning the valid set and the rejected inputs.
func ParsePermissionSet(raw []string) (PermissionSet, []string) {
	set := make(PermissionSet, len(raw))
	var rejected []string
	for _, code := range raw {
		perm, err := ParsePermission(code)
		if err != nil {
			rejected = append(rejected, code)
			continue
		}
		set[perm] = struct{}{}
	}
	return set, rejected
}

// Has reports membership.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// HasAll reports whether every required permission is present.
func (s PermissionSet) HasAll(required ...Permission) bool {
	for _, p := range required {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// Sorted returns the codes in lexical order.
func (s PermissionSet) Sorted() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted codes as wire strings.
func (s PermissionSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, p := range sorted {
		out[i] = string(p)
	}
	return out
}

// Principal describes the actor the gate reasons about.
type Principal interface {
	IsAuthenticated() bool
	CurrentRole() Role
	Permissions() PermissionSet
}

// Subject is a Principal whose state may still be resolving.
type Subject interface {
	Principal
	Loading() bool
}
