package menu

// Option overrides part of a Config. Keys an option does not touch keep their
// previous value.
type Option func(*Config)

// Title sets the page title.
func Title(title string) Option {
	return func(c *Config) { c.Title = title }
}

// Breadcrumbs replaces the breadcrumb trail.
func Breadcrumbs(crumbs ...Breadcrumb) Option {
	return func(c *Config) { c.Breadcrumbs = append([]Breadcrumb{}, crumbs...) }
}

// Actions replaces the generic action list.
func Actions(actions ...Action) Option {
	return func(c *Config) { c.Actions = append([]Action{}, actions...) }
}

// NewAction shows the "new" slot linking to href.
func NewAction(href string, enabled bool) Option {
	return func(c *Config) {
		c.NewAction.Visible = true
		c.NewAction.Enabled = enabled
		c.NewAction.Href = href
	}
}

// DeleteAction shows the "delete" slot posting to href.
func DeleteAction(href string, enabled bool) Option {
	return func(c *Config) {
		c.DeleteAction.Visible = true
		c.DeleteAction.Enabled = enabled
		c.DeleteAction.Href = href
	}
}

// Search shows the search box submitting to action with the current query.
func Search(action, query string) Option {
	return func(c *Config) {
		c.Search.Visible = true
		c.Search.Action = action
		c.Search.Query = query
	}
}

// SearchPlaceholder changes the search box hint.
func SearchPlaceholder(text string) Option {
	return func(c *Config) { c.Search.Placeholder = text }
}

// FilterSidebar shows the filter sidebar toggle.
func FilterSidebar(href string, open bool) Option {
	return func(c *Config) {
		c.FilterSidebar.Visible = true
		c.FilterSidebar.Href = href
		c.FilterSidebar.Open = open
	}
}

// DetailsSidebar shows the details sidebar toggle.
func DetailsSidebar(href string, open bool) Option {
	return func(c *Config) {
		c.DetailsSidebar.Visible = true
		c.DetailsSidebar.Href = href
		c.DetailsSidebar.Open = open
	}
}

// Share shows the share icon.
func Share(href string) Option {
	return func(c *Config) { showIcon(&c.Share, href) }
}

// ViewToggle shows the view toggle icon.
func ViewToggle(href string) Option {
	return func(c *Config) { showIcon(&c.ViewToggle, href) }
}

// Info shows the info icon.
func Info(href string) Option {
	return func(c *Config) { showIcon(&c.Info, href) }
}

// Fullscreen shows the fullscreen icon.
func Fullscreen(href string) Option {
	return func(c *Config) { showIcon(&c.Fullscreen, href) }
}

// Bookmark shows the bookmark icon.
func Bookmark(href string) Option {
	return func(c *Config) { showIcon(&c.Bookmark, href) }
}

func showIcon(f *Feature, href string) {
	f.Visible = true
	f.Href = href
}
