// Package menu holds the contextual top bar configuration that the mounted page
// publishes and the shell renders.
package menu

import (
	"errors"
	"fmt"
	"html/template"
)

// DefaultTitle is shown when no page published a title.
const DefaultTitle = "Dashboard"

// ErrInvalidConfig is returned when a published configuration cannot be rendered.
var ErrInvalidConfig = errors.New("menu: invalid configuration")

// Breadcrumb is one step of the page trail. The last crumb usually has no Href.
type Breadcrumb struct {
	Label string `json:"label"`
	Href  string `json:"href,omitempty"`
}

// ActionKind tags the variant of a generic action.
type ActionKind string

// Action variants the top bar knows how to render.
const (
	ActionButton     ActionKind = "button"
	ActionIconButton ActionKind = "icon_button"
	ActionMenuButton ActionKind = "menu_button"
	ActionDivider    ActionKind = "divider"
	ActionCustom     ActionKind = "custom"
)

// MenuItem is an entry of a menu button's dropdown.
type MenuItem struct {
	Label  string `json:"label"`
	Href   string `json:"href"`
	Method string `json:"method,omitempty"`
	Danger bool   `json:"danger,omitempty"`
}

// Action is a generic top bar action. Href and Method stand in for a click callback:
// GET actions render as links, anything else as a CSRF protected form.
type Action struct {
	Kind     ActionKind `json:"kind"`
	Label    string     `json:"label,omitempty"`
	Icon     string     `json:"icon,omitempty"`
	Tooltip  string     `json:"tooltip,omitempty"`
	Href     string     `json:"href,omitempty"`
	Method   string     `json:"method,omitempty"`
	Disabled bool       `json:"disabled,omitempty"`
	Items    []MenuItem `json:"items,omitempty"`

	// HTML is the markup rendered for ActionCustom. It must come from trusted code.
	HTML template.HTML `json:"-"`
}

// IsForm reports whether the action submits instead of navigating.
func (a Action) IsForm() bool {
	return a.Method != "" && a.Method != "GET"
}

// Feature is a standard slot: shown when Visible, clickable only when Enabled.
type Feature struct {
	Visible bool   `json:"visible"`
	Enabled bool   `json:"enabled"`
	Label   string `json:"label,omitempty"`
	Href    string `json:"href,omitempty"`
	Method  string `json:"method,omitempty"`
}

// Active reports whether the slot renders as a clickable control.
func (f Feature) Active() bool {
	return f.Visible && f.Enabled && f.Href != ""
}

// IsForm reports whether the slot submits instead of navigating.
func (f Feature) IsForm() bool {
	return f.Method != "" && f.Method != "GET"
}

// SearchBox is the top bar search slot.
type SearchBox struct {
	Visible     bool   `json:"visible"`
	Enabled     bool   `json:"enabled"`
	Placeholder string `json:"placeholder,omitempty"`
	Action      string `json:"action,omitempty"`
	Param       string `json:"param,omitempty"`
	Query       string `json:"query,omitempty"`
}

// Toggle is a sidebar toggle slot.
type Toggle struct {
	Visible bool   `json:"visible"`
	Enabled bool   `json:"enabled"`
	Open    bool   `json:"open"`
	Href    string `json:"href,omitempty"`
}

// Config is the complete top bar configuration.
type Config struct {
	Title          string       `json:"title"`
	Breadcrumbs    []Breadcrumb `json:"breadcrumbs"`
	Actions        []Action     `json:"actions"`
	NewAction      Feature      `json:"new_action"`
	DeleteAction   Feature      `json:"delete_action"`
	Search         SearchBox    `json:"search"`
	FilterSidebar  Toggle       `json:"filter_sidebar"`
	DetailsSidebar Toggle       `json:"details_sidebar"`
	Share          Feature      `json:"share"`
	ViewToggle     Feature      `json:"view_toggle"`
	Info           Feature      `json:"info"`
	Fullscreen     Feature      `json:"fullscreen"`
	Bookmark       Feature      `json:"bookmark"`
}

// Defaults returns the configuration shown when no page published anything: a
// generic title and every slot hidden.
func Defaults() Config {
	return Config{
		Title:          DefaultTitle,
		Breadcrumbs:    []Breadcrumb{},
		Actions:        []Action{},
		NewAction:      Feature{Enabled: true, Label: "New"},
		DeleteAction:   Feature{Enabled: true, Label: "Delete", Method: "POST"},
		Search:         SearchBox{Enabled: true, Placeholder: "Search...", Param: "q"},
		FilterSidebar:  Toggle{Enabled: true},
		DetailsSidebar: Toggle{Enabled: true},
		Share:          Feature{Enabled: true, Label: "Share"},
		ViewToggle:     Feature{Enabled: true, Label: "Toggle view"},
		Info:           Feature{Enabled: true, Label: "Info"},
		Fullscreen:     Feature{Enabled: true, Label: "Fullscreen"},
		Bookmark:       Feature{Enabled: true, Label: "Bookmark"},
	}
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	out := c
	out.Breadcrumbs = append([]Breadcrumb{}, c.Breadcrumbs...)
	out.Actions = make([]Action, len(c.Actions))
	for i, a := range c.Actions {
		a.Items = append([]MenuItem(nil), a.Items...)
		out.Actions[i] = a
	}
	return out
}

// Validate rejects configurations the top bar cannot render.
func (c Config) Validate() error {
	for i, a := range c.Actions {
		switch a.Kind {
		case ActionButton:
			if a.Label == "" {
				return fmt.Errorf("%w: action %d: button needs a label", ErrInvalidConfig, i)
			}
		case ActionIconButton:
			if a.Icon == "" {
				return fmt.Errorf("%w: action %d: icon button needs an icon", ErrInvalidConfig, i)
			}
		case ActionMenuButton:
			if len(a.Items) == 0 {
				return fmt.Errorf("%w: action %d: menu button needs items", ErrInvalidConfig, i)
			}
		case ActionDivider:
		case ActionCustom:
			if a.HTML == "" {
				return fmt.Errorf("%w: action %d: custom action needs markup", ErrInvalidConfig, i)
			}
		default:
			return fmt.Errorf("%w: action %d: unknown kind %q", ErrInvalidConfig, i, a.Kind)
		}
	}
	return nil
}
