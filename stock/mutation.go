// Package stock computes new product documents from stock operations.
//
// Every function here is pure: the product passed in is never modified and
// the returned product owns fresh Stocks and EditedBy slices. Persisting the
// result is the caller's job.
package stock

import (
	"time"

	"stockroom/domain"
)

// SetQuantity replaces the quantity held at warehouseID. The quantity is
// taken as is; callers validate it. A product without that warehouse is
// returned unchanged.
func SetQuantity(p domain.Product, warehouseID, quantity int) domain.Product {
	return mapStock(p, warehouseID, func(s domain.Stock) domain.Stock {
		s.Quantity = quantity
		return s
	})
}

// DecrementQuantity removes amount from the quantity held at warehouseID,
// stopping at zero.
func DecrementQuantity(p domain.Product, warehouseID, amount int) domain.Product {
	return mapStock(p, warehouseID, func(s domain.Stock) domain.Stock {
		s.Quantity = max(0, s.Quantity-amount)
		return s
	})
}

// UpsertWarehouseStock adds quantity at warehouseID. An existing line only
// has its quantity increased; name and city are used when the line is
// created.
func UpsertWarehouseStock(p domain.Product, warehouseID int, name, city string, quantity int) domain.Product {
	out := clone(p)
	for i := range out.Stocks {
		if out.Stocks[i].ID == warehouseID {
			out.Stocks[i].Quantity += quantity
			return out
		}
	}
	out.Stocks = append(out.Stocks, domain.Stock{
		ID:       warehouseID,
		Name:     name,
		Quantity: quantity,
		Localisation: domain.Localisation{
			City: city,
		},
	})
	return out
}

// RemoveWarehouseStock drops the line held at warehouseID, keeping the
// remaining lines in order.
func RemoveWarehouseStock(p domain.Product, warehouseID int) domain.Product {
	out := clone(p)
	kept := out.Stocks[:0]
	for _, s := range out.Stocks {
		if s.ID != warehouseID {
			kept = append(kept, s)
		}
	}
	out.Stocks = kept
	return out
}

// RecordEdit appends an edit record for editorID.
func RecordEdit(p domain.Product, editorID int, at time.Time) domain.Product {
	out := clone(p)
	out.EditedBy = append(out.EditedBy, domain.EditRecord{EditorID: editorID, At: at})
	return out
}

// ApplyDetails merges the non-nil fields of d into p.
func ApplyDetails(p domain.Product, d domain.ProductDetails) domain.Product {
	out := clone(p)
	if d.Name != nil {
		out.Name = *d.Name
	}
	if d.Type != nil {
		out.Type = *d.Type
	}
	if d.Barcode != nil {
		out.Barcode = *d.Barcode
	}
	if d.Price != nil {
		out.Price = *d.Price
	}
	if d.Supplier != nil {
		out.Supplier = *d.Supplier
	}
	if d.Image != nil {
		out.Image = *d.Image
	}
	return out
}

func mapStock(p domain.Product, warehouseID int, fn func(domain.Stock) domain.Stock) domain.Product {
	out := clone(p)
	for i := range out.Stocks {
		if out.Stocks[i].ID == warehouseID {
			out.Stocks[i] = fn(out.Stocks[i])
		}
	}
	return out
}

// clone copies the slices of p so the result can be changed freely.
func clone(p domain.Product) domain.Product {
	out := p
	out.Stocks = make([]domain.Stock, len(p.Stocks))
	copy(out.Stocks, p.Stocks)
	out.EditedBy = make([]domain.EditRecord, len(p.EditedBy))
	copy(out.EditedBy, p.EditedBy)
	return out
}
