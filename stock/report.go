package stock

import (
	"github.com/shopspring/decimal"

	"stockroom/catalog"
	"stockroom/domain"
)

// WarehouseStockReport lists, in catalog order, the quantity of every
// product stocked at warehouseID. Products without a line there are left
// out rather than reported as zero.
func WarehouseStockReport(products []domain.Product, warehouseID int) []domain.WarehouseStockItem {
	items := make([]domain.WarehouseStockItem, 0)
	for _, p := range products {
		for _, s := range p.Stocks {
			if s.ID == warehouseID {
				items = append(items, domain.WarehouseStockItem{
					ProductID: p.ID,
					Name:      p.Name,
					Quantity:  s.Quantity,
				})
				break
			}
		}
	}
	return items
}

// DeriveWarehouseList collects the distinct warehouses referenced by the
// catalog. The first stock line seen for an id decides its name and
// localisation.
func DeriveWarehouseList(products []domain.Product) []domain.Warehouse {
	seen := make(map[int]struct{})
	warehouses := make([]domain.Warehouse, 0)
	for _, p := range products {
		for _, s := range p.Stocks {
			if _, ok := seen[s.ID]; ok {
				continue
			}
			seen[s.ID] = struct{}{}
			warehouses = append(warehouses, domain.Warehouse{
				ID:           s.ID,
				Name:         s.Name,
				Localisation: s.Localisation,
			})
		}
	}
	return warehouses
}

// FindWarehouse returns the derived warehouse with the given id.
func FindWarehouse(products []domain.Product, warehouseID int) (domain.Warehouse, bool) {
	for _, w := range DeriveWarehouseList(products) {
		if w.ID == warehouseID {
			return w, true
		}
	}
	return domain.Warehouse{}, false
}

// NextWarehouseID returns one past the highest warehouse id in the
// catalog, starting at 1.
func NextWarehouseID(products []domain.Product) int {
	highest := 0
	for _, w := range DeriveWarehouseList(products) {
		highest = max(highest, w.ID)
	}
	return highest + 1
}

// ComputeStatistics summarises the catalog: product count, products with
// nothing in stock anywhere, and the value of all stock at list price.
func ComputeStatistics(products []domain.Product) domain.Statistics {
	stats := domain.Statistics{
		TotalProducts:       len(products),
		TotalStockValue:     decimal.Zero,
		MostAddedProducts:   []domain.ProductMovement{},
		MostRemovedProducts: []domain.ProductMovement{},
	}
	for _, p := range products {
		total := catalog.TotalQuantity(p)
		if total == 0 {
			stats.OutOfStock++
			continue
		}
		stats.TotalStockValue = stats.TotalStockValue.Add(p.Price.Mul(decimal.NewFromInt(int64(total))))
	}
	return stats
}
