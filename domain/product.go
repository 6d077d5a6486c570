// Package domain defines core business types and interfaces.
package domain

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// the backend stores prices as plain JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// ID identifies a product. The backend hands out integers but the client
// accepts string identifiers as well.
type ID string

// Int returns the numeric value of the id and whether it is numeric.
func (id ID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != string(id) {
		return 0, false
	}
	return n, true
}

// MarshalJSON writes numeric ids as JSON numbers and anything else as a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if _, ok := id.Int(); ok {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a JSON number or string.
func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Localisation is the physical location of a warehouse.
type Localisation struct {
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Stock is the quantity of one product held at one warehouse.
// ID is the warehouse id.
type Stock struct {
	ID           int          `json:"id"`
	Name         string       `json:"name"`
	Quantity     int          `json:"quantity"`
	Localisation Localisation `json:"localisation"`
}

// EditRecord records who touched a product and when.
type EditRecord struct {
	EditorID int       `json:"warehousemanId"`
	At       time.Time `json:"at"`
}

// Product represents a catalog product
type Product struct {
	ID       ID              `json:"id,omitempty"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Barcode  string          `json:"barcode"`
	Price    decimal.Decimal `json:"price"`
	Solde    decimal.Decimal `json:"solde"`
	Supplier string          `json:"supplier"`
	Image    string          `json:"image"`
	Stocks   []Stock         `json:"stocks"`
	EditedBy []EditRecord    `json:"editedBy"`
}

// LastEditor returns the most recent edit record, if any.
func (p Product) LastEditor() (EditRecord, bool) {
	if len(p.EditedBy) == 0 {
		return EditRecord{}, false
	}
	return p.EditedBy[len(p.EditedBy)-1], true
}

// Warehouse is derived from the stock lines of the catalog; it is never
// persisted on its own.
type Warehouse struct {
	ID           int          `json:"id"`
	Name         string       `json:"name"`
	Localisation Localisation `json:"localisation"`
}

// WarehouseStockItem is one line of a warehouse stock report.
type WarehouseStockItem struct {
	ProductID ID     `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// ProductMovement is a product and the quantity moved, as ranked by the
// backend's statistics.
type ProductMovement struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Statistics summarises the catalog. The movement rankings are kept by the
// backend; a catalog alone cannot produce them, so locally computed
// statistics leave them empty.
type Statistics struct {
	TotalProducts       int               `json:"totalProducts"`
	OutOfStock          int               `json:"outOfStock"`
	TotalStockValue     decimal.Decimal   `json:"totalStockValue"`
	MostAddedProducts   []ProductMovement `json:"mostAddedProducts"`
	MostRemovedProducts []ProductMovement `json:"mostRemovedProducts"`
}

// Warehouseman is a member of the warehouse staff and the authenticated
// user of the client.
type Warehouseman struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DOB         string `json:"dob"`
	City        string `json:"city"`
	SecretKey   string `json:"secretKey"`
	WarehouseID int    `json:"warehouseId"`
}

// ProductDetails is a partial update of a product's descriptive fields.
// Nil fields are left as they are.
type ProductDetails struct {
	Name     *string
	Type     *string
	Barcode  *string
	Price    *decimal.Decimal
	Supplier *string
	Image    *string
}

// Sort keys understood by the catalog query.
const (
	SortByName     = "name"
	SortByQuantity = "quantity"
	SortByStock    = "stock"
)

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// FilterSortSpec describes one catalog query. The zero value matches every
// product and keeps the input order.
type FilterSortSpec struct {
	SearchQuery string
	SortBy      string // "name", "quantity", "stock"
	OrderBy     string // "asc" or "desc"
	City        string
	InStockOnly bool
	Locale      string // BCP 47 tag used to collate names
}

// ProductStore defines the storage interface for products
type ProductStore interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id ID) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id ID, product Product) (Product, error)
	Delete(ctx context.Context, id ID) error
	BulkImport(ctx context.Context, products []Product) error
}

// WarehousemanStore looks up staff members by their secret code.
type WarehousemanStore interface {
	FindBySecretKey(ctx context.Context, secretKey string) (Warehouseman, error)
}

// StatisticsSource is implemented by stores that can compute catalog
// statistics on their side.
type StatisticsSource interface {
	Statistics(ctx context.Context) (Statistics, error)
}
