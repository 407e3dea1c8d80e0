package nav

import "github.com/odyssey-erp/odyssey-admin/internal/rbac"

// DefaultTree is the dashboard's menu.
func DefaultTree() []Entry {
	return []Entry{
		{Label: "Dashboard", Icon: "home", Path: "/dashboard"},
		{
			ID: "stores", Label: "Store Management", Icon: "store", Permission: rbac.PermStoreRead,
			Items: []Entry{
				{Label: "Stores", Icon: "store", Path: "/dashboard/stores", Permission: rbac.PermStoreRead},
			},
		},
		{
			ID: "catalog", Label: "Catalog", Icon: "package",
			Items: []Entry{
				{Label: "Products", Icon: "box", Path: "/dashboard/products", Permission: rbac.PermProductRead},
				{Label: "Categories", Icon: "folder", Path: "/dashboard/categories", Permission: rbac.PermCategoryRead},
				{Label: "Brands", Icon: "tag", Path: "/dashboard/brands", Permission: rbac.PermBrandRead},
				{Label: "Units", Icon: "ruler", Path: "/dashboard/units", Permission: rbac.PermUnitRead},
				{Label: "Taxes", Icon: "percent", Path: "/dashboard/taxes", Permission: rbac.PermTaxRead},
				{Label: "Warranties", Icon: "shield", Path: "/dashboard/warranties", Permission: rbac.PermWarrantyRead},
			},
		},
		{
			ID: "partners", Label: "Partners", Icon: "handshake",
			Items: []Entry{
				{Label: "Suppliers", Icon: "truck", Path: "/dashboard/suppliers", Permission: rbac.PermSupplierRead},
				{Label: "Manufacturers", Icon: "factory", Path: "/dashboard/manufacturers", Permission: rbac.PermManufacturerRead},
			},
		},
		{
			ID: "stock", Label: "Stock & Purchasing", Icon: "warehouse",
			Items: []Entry{
				{Label: "Inventory", Icon: "layers", Path: "/dashboard/inventory", Permission: rbac.PermInventoryRead},
				{Label: "Purchases", Icon: "cart", Path: "/dashboard/purchases", Permission: rbac.PermPurchaseRead},
			},
		},
		{
			ID: "access", Label: "Users & Access", Icon: "users", Permission: rbac.PermUserReadAll,
			Items: []Entry{
				{Label: "Users", Icon: "user", Path: "/dashboard/users", Permission: rbac.PermUserRead},
				{Label: "Roles", Icon: "key", Path: "/dashboard/roles", Permission: rbac.PermRoleRead},
				{Label: "Permissions", Icon: "lock", Path: "/dashboard/permissions", Permission: rbac.PermPermissionRead},
			},
		},
	}
}
