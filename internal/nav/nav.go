// Package nav builds the permission-aware sidebar.
package nav

import (
	"strings"

	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
)

// Entry declares a sidebar item. An entry with Items, or with Section set, is a
// collapsible section identified by ID.
type Entry struct {
	ID    string
	Label string
	Icon  string
	Path  string
	// Permission, when set, must be held for the entry to render.
	Permission rbac.Permission
	// Roles, when set, restricts the entry to those roles.
	Roles   []rbac.Role
	Section bool
	Items   []Entry
}

// IsSection reports whether the entry renders as a collapsible header.
func (e Entry) IsSection() bool {
	return e.Section || len(e.Items) > 0
}

func (e Entry) requirement() rbac.Requirement {
	req := rbac.Requirement{Roles: e.Roles}
	if e.Permission != "" {
		req.Permissions = []rbac.Permission{e.Permission}
	}
	return req
}

// Filter returns the entries p may see. Denied items are omitted, not disabled. A
// section the user may not see is dropped with all its children, and a section left
// without visible children and without its own path is dropped too.
func Filter(entries []Entry, p rbac.Principal) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !rbac.Allowed(p, e.requirement()) {
			continue
		}
		if e.IsSection() {
			e.Items = Filter(e.Items, p)
			if len(e.Items) == 0 && e.Path == "" {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// Matches reports whether current is path or lies below it.
func Matches(path, current string) bool {
	if path == "" || current == "" {
		return false
	}
	if path == current {
		return true
	}
	prefix := strings.TrimSuffix(path, "/")
	return strings.HasPrefix(current, prefix+"/")
}

// bestMatch returns the longest path among entries matching current.
func bestMatch(entries []Entry, current string) string {
	best := ""
	var walk func([]Entry)
	walk = func(list []Entry) {
		for _, e := range list {
			if Matches(e.Path, current) && len(e.Path) > len(best) {
				best = e.Path
			}
			walk(e.Items)
		}
	}
	walk(entries)
	return best
}

// containsMatch reports whether any descendant of e matches current.
func containsMatch(e Entry, current string) bool {
	for _, child := range e.Items {
		if Matches(child.Path, current) || containsMatch(child, current) {
			return true
		}
	}
	return false
}
