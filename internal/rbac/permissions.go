package rbac

// Store permissions.
const (
	PermStoreRead           Permission = "store:read"
	PermStoreCreate         Permission = "store:create"
	PermStoreUpdate         Permission = "store:update"
	PermStoreDelete         Permission = "store:delete"
	PermStoreSettingsRead   Permission = "store_settings:read"
	PermStoreSettingsUpdate Permission = "store_settings:update"
)

// Catalog permissions.
const (
	PermCategoryRead   Permission = "category:read"
	PermCategoryCreate Permission = "category:create"
	PermCategoryDelete Permission = "category:delete"
	PermBrandRead      Permission = "brand:read"
	PermBrandCreate    Permission = "brand:create"
	PermBrandDelete    Permission = "brand:delete"
	PermUnitRead       Permission = "unit:read"
	PermUnitCreate     Permission = "unit:create"
	PermUnitDelete     Permission = "unit:delete"
	PermTaxRead        Permission = "tax:read"
	PermTaxCreate      Permission = "tax:create"
	PermTaxDelete      Permission = "tax:delete"
	PermWarrantyRead   Permission = "warranty:read"
	PermWarrantyCreate Permission = "warranty:create"
	PermWarrantyDelete Permission = "warranty:delete"
	PermProductRead    Permission = "product:read"
	PermProductCreate  Permission = "product:create"
	PermProductDelete  Permission = "product:delete"
)

// Partner permissions.
const (
	PermSupplierRead       Permission = "supplier:read"
	PermSupplierCreate     Permission = "supplier:create"
	PermSupplierDelete     Permission = "supplier:delete"
	PermManufacturerRead   Permission = "manufacturer:read"
	PermManufacturerCreate Permission = "manufacturer:create"
	PermManufacturerDelete Permission = "manufacturer:delete"
)

// Inventory and purchasing permissions.
const (
	PermInventoryRead   Permission = "inventory:read"
	PermInventoryCreate Permission = "inventory:create"
	PermInventoryDelete Permission = "inventory:delete"
	PermPurchaseRead    Permission = "purchase:read"
	PermPurchaseCreate  Permission = "purchase:create"
	PermPurchaseDelete  Permission = "purchase:delete"
)

// Access-control permissions.
const (
	PermUserRead       Permission = "user:read"
	PermUserReadAll    Permission = "user:read_all"
	PermUserCreate     Permission = "user:create"
	PermUserDelete     Permission = "user:delete"
	PermRoleRead       Permission = "role:read"
	PermRoleCreate     Permission = "role:create"
	PermRoleDelete     Permission = "role:delete"
	PermPermissionRead Permission = "permission:read"
)
