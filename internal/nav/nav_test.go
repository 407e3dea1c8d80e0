package nav

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
)

type principal struct {
	role  rbac.Role
	perms rbac.PermissionSet
}

func (p principal) IsAuthenticated() bool           { return true }
func (p principal) CurrentRole() rbac.Role          { return p.role }
func (p principal) Permissions() rbac.PermissionSet { return p.perms }

func user(role rbac.Role, perms ...rbac.Permission) principal {
	return principal{role: role, perms: rbac.NewPermissionSet(perms...)}
}

func labels(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Label)
	}
	return out
}

func TestSectionGatedOnMissingPermissionIsOmitted(t *testing.T) {
	// Holds every child permission of the access section but not user:read_all.
	p := user(rbac.RoleStoreAdmin, rbac.PermUserRead, rbac.PermRoleRead, rbac.PermPermissionRead)
	visible := Filter(DefaultTree(), p)
	assert.NotContains(t, labels(visible), "Users & Access")
	assert.NotContains(t, SectionIDs(visible), "access")

	p.perms[rbac.PermUserReadAll] = struct{}{}
	visible = Filter(DefaultTree(), p)
	assert.Contains(t, SectionIDs(visible), "access")
}

func TestEmptySectionWithoutPathIsOmitted(t *testing.T) {
	p := user(rbac.RoleSalesPerson, rbac.PermProductRead)
	visible := Filter(DefaultTree(), p)
	assert.Equal(t, []string{"Dashboard", "Catalog"}, labels(visible))
	require.Len(t, visible[1].Items, 1)
	assert.Equal(t, "Products", visible[1].Items[0].Label)
}

func TestSectionWithOwnPathSurvivesWithoutChildren(t *testing.T) {
	tree := []Entry{{
		ID: "reports", Label: "Reports", Path: "/dashboard/reports",
		Items: []Entry{{Label: "Sales", Path: "/dashboard/reports/sales", Permission: "report:read"}},
	}}
	visible := Filter(tree, user(rbac.RoleSalesPerson))
	require.Len(t, visible, 1)
	assert.Empty(t, visible[0].Items)
}

func TestRoleRestrictedItems(t *testing.T) {
	tree := []Entry{
		{Label: "Admin only", Path: "/a", Roles: []rbac.Role{rbac.RoleGlobalAdmin}},
		{Label: "Everyone", Path: "/b"},
	}
	assert.Equal(t, []string{"Everyone"}, labels(Filter(tree, user(rbac.RoleSalesPerson))))
	assert.Equal(t, []string{"Admin only", "Everyone"}, labels(Filter(tree, user(rbac.RoleGlobalAdmin))))
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("/dashboard/stores", "/dashboard/stores"))
	assert.True(t, Matches("/dashboard/stores", "/dashboard/stores/12"))
	assert.True(t, Matches("/dashboard/stores/", "/dashboard/stores/12"))
	assert.False(t, Matches("/dashboard/stores", "/dashboard/stores-archive"))
	assert.False(t, Matches("", "/dashboard"))
}

func TestAutoExpandIsAdditive(t *testing.T) {
	p := user(rbac.RoleGlobalAdmin, rbac.PermProductRead, rbac.PermSupplierRead)
	x := NewExpansion()
	assert.True(t, x.Toggle("catalog"))

	sb := Build(DefaultTree(), p, x, "/dashboard/suppliers/4")
	assert.True(t, x.IsOpen("catalog"), "manually opened section stays open")
	assert.True(t, x.IsOpen("partners"))
	assert.Equal(t, []string{"catalog", "partners"}, x.Open())

	var suppliers Item
	for _, it := range sb.Items {
		if it.ID == "partners" {
			require.Len(t, it.Children, 1)
			suppliers = it.Children[0]
			assert.True(t, it.Open)
		}
	}
	assert.True(t, suppliers.Active)
	assert.Equal(t, "/dashboard/suppliers", suppliers.Path)
}

func TestBuildMarksLongestMatchActive(t *testing.T) {
	p := user(rbac.RoleGlobalAdmin, rbac.PermStoreRead)
	sb := Build(DefaultTree(), p, nil, "/dashboard/stores")
	require.Len(t, sb.Items, 2)
	assert.False(t, sb.Items[0].Active, "dashboard is only a prefix")
	assert.True(t, sb.Items[1].Open)
	assert.True(t, sb.Items[1].Children[0].Active)
}

func TestToggleAndCollapsed(t *testing.T) {
	x := NewExpansion()
	assert.True(t, x.Toggle("catalog"))
	assert.False(t, x.Toggle("catalog"))
	assert.False(t, x.IsOpen("catalog"))

	assert.True(t, x.ToggleCollapsed())
	sb := Build(DefaultTree(), user(rbac.RoleGlobalAdmin), x, "/dashboard")
	assert.True(t, sb.Collapsed)
	x.SetCollapsed(false)
	assert.False(t, x.Collapsed())
}

func TestExpansionRegistry(t *testing.T) {
	reg := NewExpansionRegistry(4, time.Minute)
	a := reg.Get("s1")
	a.Expand("catalog")
	assert.Same(t, a, reg.Get("s1"))
	assert.True(t, reg.Get("s1").IsOpen("catalog"))
	assert.NotSame(t, a, reg.Get("s2"))

	reg.Forget("s1")
	assert.False(t, reg.Get("s1").IsOpen("catalog"))
}
