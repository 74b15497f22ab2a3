package catalog

import (
	"regexp"

	"github.com/dukapoint/storefront/internal/fault"
)

// Product is a catalog item. Price is in integer minor units; Quantity is
// the available stock and is only decremented through the stock ledger.
// SupplierID is derived from the category at creation time.
type Product struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Price      int64   `json:"price"`
	Quantity   int     `json:"quantity"`
	CategoryID *int64  `json:"category_id"`
	SupplierID *int64  `json:"supplier_id"`
	ImageRef   *string `json:"image"`
}

// ProductListing is a product row denormalized for listings.
type ProductListing struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	CategoryID *int64  `json:"category_id"`
	Supplier   string  `json:"supplier"`
	SupplierID *int64  `json:"supplier_id"`
	Price      int64   `json:"price"`
	Quantity   int     `json:"quantity"`
	ImageRef   *string `json:"image"`
}

// CategoryImage is an opaque image reference attached to a category.
// Storage mechanics live elsewhere; the catalog only tracks the refs.
type CategoryImage struct {
	ID  int64  `json:"image_id"`
	Ref string `json:"image"`
}

// Category groups products under an optional supplier.
type Category struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	SupplierID   *int64          `json:"supplier_id"`
	SupplierName *string         `json:"supplier_name"`
	Images       []CategoryImage `json:"images"`
}

// Supplier is referenced, never owned, by categories and products.
type Supplier struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Address      string `json:"address"`
}

// Optional supplier contact fields, when present, must look like real
// contact details.
var (
	supplierEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	supplierPhonePattern = regexp.MustCompile(`^\+?\d{10,15}$`)
)

// SupplierInput carries the admin-editable supplier fields.
type SupplierInput struct {
	Name         string
	ContactEmail string
	ContactPhone string
	Address      string
}

// Validate checks the name and the optional contact fields.
func (in SupplierInput) Validate() error {
	if in.Name == "" {
		return &fault.ValidationError{Reason: "Supplier name is required"}
	}
	if in.ContactEmail != "" && !supplierEmailPattern.MatchString(in.ContactEmail) {
		return &fault.ValidationError{Reason: "Invalid email format"}
	}
	if in.ContactPhone != "" && !supplierPhonePattern.MatchString(in.ContactPhone) {
		return &fault.ValidationError{Reason: "Invalid phone number format"}
	}
	return nil
}

// SupplierProduct is one product row in the grouped supplier view.
type SupplierProduct struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    int64   `json:"price"`
	Quantity int     `json:"quantity"`
	Category string  `json:"category"`
	ImageRef *string `json:"image"`
}

// SupplierWithProducts is a supplier together with the products it sources.
type SupplierWithProducts struct {
	Supplier
	Products []SupplierProduct `json:"products"`
}

// ProductInput carries the admin-editable product fields. SupplierID is not
// part of the input; it always follows the category.
type ProductInput struct {
	Name       string
	Price      int64
	Quantity   int
	CategoryID int64
	ImageRef   *string
}
