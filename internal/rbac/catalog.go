package rbac

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PermissionGroup is a display bucket of permissions sharing a category.
type PermissionGroup struct {
	Name        string
	Permissions []Permission
}

// categories maps a permission resource to its display group. Order of groupOrder
// decides rendering order; resources missing here fall back to their own name.
var categories = map[string]string{
	"store":          "Store Management",
	"store_settings": "Store Management",
	"category":       "Catalog",
	"brand":          "Catalog",
	"unit":           "Catalog",
	"tax":            "Catalog",
	"warranty":       "Catalog",
	"product":        "Catalog",
	"supplier":       "Partners",
	"manufacturer":   "Partners",
	"inventory":      "Inventory",
	"purchase":       "Purchasing",
	"user":           "Users & Access",
	"role":           "Users & Access",
	"permission":     "Users & Access",
	"settings":       "Settings",
}

var groupOrder = []string{
	"Store Management",
	"Catalog",
	"Partners",
	"Inventory",
	"Purchasing",
	"Users & Access",
	"Settings",
}

// Category returns the display group for a permission.
func Category(p Permission) string {
	resource := p.Resource()
	if name, ok := categories[resource]; ok {
		return name
	}
	return cases.Title(language.English).String(strings.ReplaceAll(resource, "_", " "))
}

// Group buckets permissions by category. Known groups come first in their fixed
// order, fallback groups follow alphabetically; codes are sorted within a group.
func Group(perms PermissionSet) []PermissionGroup {
	buckets := make(map[string][]Permission)
	for _, p := range perms.Sorted() {
		name := Category(p)
		buckets[name] = append(buckets[name], p)
	}
	groups := make([]PermissionGroup, 0, len(buckets))
	for _, name := range groupOrder {
		if items, ok := buckets[name]; ok {
			groups = append(groups, PermissionGroup{Name: name, Permissions: items})
			delete(buckets, name)
		}
	}
	rest := make([]string, 0, len(buckets))
	for name := range buckets {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	for _, name := range rest {
		groups = append(groups, PermissionGroup{Name: name, Permissions: buckets[name]})
	}
	return groups
}
