// Package screens serves the generic, table driven entity screens that consume the
// session, guard and menu contracts.
package screens

import "github.com/odyssey-erp/odyssey-admin/internal/rbac"

// Column is one table column. Key is a JSON field name; dotted keys reach into
// nested objects.
type Column struct {
	Key   string
	Label string
}

// FieldType selects how a form value is sent to the API.
type FieldType string

// Form field types.
const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
	FieldEmail  FieldType = "email"
)

// Field is one input of the create form.
type Field struct {
	Name     string
	Label    string
	Type     FieldType
	Required bool
}

// Resource declares one entity screen.
type Resource struct {
	Slug     string
	Title    string
	Singular string
	// Section labels the breadcrumb between Dashboard and the screen.
	Section string
	APIPath string
	// StatsPath is an optional summary endpoint answering {"label": number}.
	StatsPath string
	Read      rbac.Permission
	Create    rbac.Permission
	Delete    rbac.Permission
	Columns   []Column
	// Fields enables the create form; resources without fields cannot be created here.
	Fields []Field
}

// Path returns the screen's URL.
func (r Resource) Path() string {
	return "/dashboard/" + r.Slug
}

var nameField = Field{Name: "name", Label: "Name", Type: FieldText, Required: true}

// Resources lists every entity screen of the dashboard.
func Resources() []Resource {
	return []Resource{
		{
			Slug: "stores", Title: "Stores", Singular: "store", Section: "Store Management", APIPath: "/stores",
			Read: rbac.PermStoreRead, Create: rbac.PermStoreCreate, Delete: rbac.PermStoreDelete,
			Columns: []Column{{"name", "Name"}, {"address", "Address"}, {"phone", "Phone"}},
			Fields: []Field{nameField,
				{Name: "address", Label: "Address", Type: FieldText},
				{Name: "phone", Label: "Phone", Type: FieldText},
			},
		},
		{
			Slug: "products", Title: "Products", Singular: "product", Section: "Catalog", APIPath: "/products",
			StatsPath: "/products/stats",
			Read:      rbac.PermProductRead, Create: rbac.PermProductCreate, Delete: rbac.PermProductDelete,
			Columns: []Column{{"name", "Name"}, {"sku", "SKU"}, {"category.name", "Category"}, {"brand.name", "Brand"}, {"price", "Price"}},
		},
		{
			Slug: "categories", Title: "Categories", Singular: "category", Section: "Catalog", APIPath: "/categories",
			Read: rbac.PermCategoryRead, Create: rbac.PermCategoryCreate, Delete: rbac.PermCategoryDelete,
			Columns: []Column{{"name", "Name"}, {"description", "Description"}},
			Fields:  []Field{nameField, {Name: "description", Label: "Description", Type: FieldText}},
		},
		{
			Slug: "brands", Title: "Brands", Singular: "brand", Section: "Catalog", APIPath: "/brands",
			Read: rbac.PermBrandRead, Create: rbac.PermBrandCreate, Delete: rbac.PermBrandDelete,
			Columns: []Column{{"name", "Name"}, {"description", "Description"}},
			Fields:  []Field{nameField, {Name: "description", Label: "Description", Type: FieldText}},
		},
		{
			Slug: "units", Title: "Units", Singular: "unit", Section: "Catalog", APIPath: "/units",
			Read: rbac.PermUnitRead, Create: rbac.PermUnitCreate, Delete: rbac.PermUnitDelete,
			Columns: []Column{{"name", "Name"}, {"symbol", "Symbol"}},
			Fields:  []Field{nameField, {Name: "symbol", Label: "Symbol", Type: FieldText, Required: true}},
		},
		{
			Slug: "taxes", Title: "Taxes", Singular: "tax", Section: "Catalog", APIPath: "/taxes",
			Read: rbac.PermTaxRead, Create: rbac.PermTaxCreate, Delete: rbac.PermTaxDelete,
			Columns: []Column{{"name", "Name"}, {"rate", "Rate (%)"}},
			Fields:  []Field{nameField, {Name: "rate", Label: "Rate (%)", Type: FieldNumber, Required: true}},
		},
		{
			Slug: "warranties", Title: "Warranties", Singular: "warranty", Section: "Catalog", APIPath: "/warranties",
			Read: rbac.PermWarrantyRead, Create: rbac.PermWarrantyCreate, Delete: rbac.PermWarrantyDelete,
			Columns: []Column{{"name", "Name"}, {"duration_months", "Months"}, {"description", "Description"}},
			Fields: []Field{nameField,
				{Name: "duration_months", Label: "Months", Type: FieldNumber, Required: true},
				{Name: "description", Label: "Description", Type: FieldText},
			},
		},
		{
			Slug: "suppliers", Title: "Suppliers", Singular: "supplier", Section: "Partners", APIPath: "/suppliers",
			Read: rbac.PermSupplierRead, Create: rbac.PermSupplierCreate, Delete: rbac.PermSupplierDelete,
			Columns: []Column{{"name", "Name"}, {"email", "Email"}, {"phone", "Phone"}},
			Fields: []Field{nameField,
				{Name: "email", Label: "Email", Type: FieldEmail},
				{Name: "phone", Label: "Phone", Type: FieldText},
			},
		},
		{
			Slug: "manufacturers", Title: "Manufacturers", Singular: "manufacturer", Section: "Partners", APIPath: "/manufacturers",
			Read: rbac.PermManufacturerRead, Create: rbac.PermManufacturerCreate, Delete: rbac.PermManufacturerDelete,
			Columns: []Column{{"name", "Name"}, {"website", "Website"}},
			Fields:  []Field{nameField, {Name: "website", Label: "Website", Type: FieldText}},
		},
		{
			Slug: "inventory", Title: "Inventory", Singular: "stock record", Section: "Stock & Purchasing", APIPath: "/inventory",
			StatsPath: "/inventory/stats",
			Read:      rbac.PermInventoryRead, Create: rbac.PermInventoryCreate, Delete: rbac.PermInventoryDelete,
			Columns: []Column{{"product.name", "Product"}, {"store.name", "Store"}, {"quantity", "Quantity"}, {"updated_at", "Updated"}},
		},
		{
			Slug: "purchases", Title: "Purchases", Singular: "purchase", Section: "Stock & Purchasing", APIPath: "/purchases",
			StatsPath: "/purchases/stats",
			Read:      rbac.PermPurchaseRead, Create: rbac.PermPurchaseCreate, Delete: rbac.PermPurchaseDelete,
			Columns: []Column{{"reference", "Reference"}, {"supplier.name", "Supplier"}, {"total", "Total"}, {"status", "Status"}, {"created_at", "Created"}},
		},
		{
			Slug: "users", Title: "Users", Singular: "user", Section: "Users & Access", APIPath: "/users",
			Read: rbac.PermUserRead, Create: rbac.PermUserCreate, Delete: rbac.PermUserDelete,
			Columns: []Column{{"username", "Username"}, {"name", "Name"}, {"email", "Email"}, {"role", "Role"}},
		},
		{
			Slug: "roles", Title: "Roles", Singular: "role", Section: "Users & Access", APIPath: "/roles",
			Read: rbac.PermRoleRead, Create: rbac.PermRoleCreate, Delete: rbac.PermRoleDelete,
			Columns: []Column{{"name", "Name"}, {"description", "Description"}},
			Fields:  []Field{nameField, {Name: "description", Label: "Description", Type: FieldText}},
		},
	}
}
