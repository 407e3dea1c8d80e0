package nav

import (
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
)

// Item is a rendered sidebar row.
type Item struct {
	ID       string
	Label    string
	Icon     string
	Path     string
	Active   bool
	Section  bool
	Open     bool
	Children []Item
}

// Sidebar is the view model of the navigation shell.
type Sidebar struct {
	// Collapsed renders icons with tooltips only.
	Collapsed bool
	Items     []Item
}

// Build filters entries for p, auto-expands the section holding current and marks
// the best matching item active.
func Build(entries []Entry, p rbac.Principal, x *Expansion, current string) Sidebar {
	if x == nil {
		x = NewExpansion()
	}
	visible := Filter(entries, p)
	x.AutoExpand(visible, current)
	active := bestMatch(visible, current)
	return Sidebar{
		Collapsed: x.Collapsed(),
		Items:     buildItems(visible, x, active),
	}
}

func buildItems(entries []Entry, x *Expansion, active string) []Item {
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		item := Item{
			ID:      e.ID,
			Label:   e.Label,
			Icon:    e.Icon,
			Path:    e.Path,
			Active:  active != "" && e.Path == active,
			Section: e.IsSection(),
		}
		if item.Section {
			item.Open = x.IsOpen(e.ID)
			item.Children = buildItems(e.Items, x, active)
		}
		items = append(items, item)
	}
	return items
}

// SectionIDs lists the ids of every section in entries.
func SectionIDs(entries []Entry) []string {
	var ids []string
	for _, e := range entries {
		if e.IsSection() && e.ID != "" {
			ids = append(ids, e.ID)
		}
		ids = append(ids, SectionIDs(e.Items)...)
	}
	return ids
}
