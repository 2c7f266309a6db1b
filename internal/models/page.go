package models

type Page struct {
	Base
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
	URL         string `gorm:"not null;default:'/'" json:"url"`
}

// DefaultPages is the catalog provisioned at startup.
var DefaultPages = []Page{
	{Name: "products_list", Description: "List and manage products", URL: "/products"},
	{Name: "marketing_list", Description: "Marketing campaigns and initiatives", URL: "/marketing"},
	{Name: "order_list", Description: "View and manage orders", URL: "/orders"},
	{Name: "media_plans", Description: "Media planning and scheduling", URL: "/media-plans"},
	{Name: "offer_pricing_skus", Description: "Manage offers, pricing, and SKUs", URL: "/offers"},
	{Name: "clients", Description: "Client management and information", URL: "/clients"},
	{Name: "suppliers", Description: "Supplier management and details", URL: "/suppliers"},
	{Name: "customer_support", Description: "Customer support and ticket management", URL: "/support"},
	{Name: "sales_reports", Description: "Sales analytics and reporting", URL: "/sales"},
	{Name: "finance_accounting", Description: "Financial management and accounting", URL: "/finance"},
}

// IsCatalogPage reports whether name is part of DefaultPages.
func IsCatalogPage(name string) bool {
	for _, p := range DefaultPages {
		if p.Name == name {
			return true
		}
	}
	return false
}
