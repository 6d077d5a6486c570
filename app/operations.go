package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"stockroom/catalog"
	"stockroom/domain"
	"stockroom/logger"
	"stockroom/stock"
)

// NewProductInput is what a warehouseman enters when adding a product.
type NewProductInput struct {
	Name     string
	Type     string
	Barcode  string
	Price    decimal.Decimal
	Supplier string
	Image    string
	Quantity int
}

// Products fetches the catalog and filters and sorts it as asked.
func (s *Service) Products(ctx context.Context, spec domain.FilterSortSpec) ([]domain.Product, error) {
	products, err := s.list(ctx, "list products")
	if err != nil {
		return nil, err
	}
	return catalog.Query(products, spec), nil
}

// Product fetches a single product.
func (s *Service) Product(ctx context.Context, id domain.ID) (domain.Product, error) {
	return s.get(ctx, "get product", id)
}

// ProductByBarcode returns the first catalog product carrying barcode.
func (s *Service) ProductByBarcode(ctx context.Context, barcode string) (domain.Product, bool, error) {
	products, err := s.list(ctx, "scan")
	if err != nil {
		return domain.Product{}, false, err
	}
	p, ok := catalog.FindByBarcode(products, barcode)
	return p, ok, nil
}

// AddProduct creates a product stocked at the user's warehouse. When the
// barcode is already known the quantity is added to the existing product
// instead.
func (s *Service) AddProduct(ctx context.Context, user domain.Warehouseman, in NewProductInput) (domain.Product, error) {
	if in.Quantity < 0 {
		return domain.Product{}, domain.NewInvalidProductError("quantity", "cannot be negative", in.Quantity)
	}

	products, err := s.list(ctx, "add product")
	if err != nil {
		return domain.Product{}, err
	}
	if in.Barcode != "" {
		if existing, ok := catalog.FindByBarcode(products, in.Barcode); ok {
			logger.Logger.Info().Str("barcode", in.Barcode).Str("product_id", string(existing.ID)).Msg("barcode known, adding stock")
			name := warehouseName(products, user.WarehouseID)
			return s.mutate(ctx, "add product", existing.ID, func(p domain.Product) domain.Product {
				return stock.UpsertWarehouseStock(p, user.WarehouseID, name, user.City, in.Quantity)
			})
		}
	}

	p := domain.Product{
		Name:     in.Name,
		Type:     in.Type,
		Barcode:  in.Barcode,
		Price:    in.Price,
		Supplier: in.Supplier,
		Image:    in.Image,
	}
	p = stock.UpsertWarehouseStock(p, user.WarehouseID, warehouseName(products, user.WarehouseID), user.City, in.Quantity)
	p = stock.RecordEdit(p, user.ID, s.now())
	if err := domain.ValidateProduct(p); err != nil {
		return domain.Product{}, err
	}

	var created domain.Product
	err = s.call(ctx, "add product", func(ctx context.Context) error {
		var err error
		created, err = s.products.Create(ctx, p)
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}
	logger.Logger.Info().Str("product_id", string(created.ID)).Str("name", created.Name).Msg("product created")
	return created, nil
}

// UpdateStock sets the quantity held at warehouseID.
func (s *Service) UpdateStock(ctx context.Context, id domain.ID, warehouseID, quantity int) (domain.Product, error) {
	if quantity < 0 {
		return domain.Product{}, domain.NewInvalidProductError("quantity", "cannot be negative", quantity)
	}
	return s.mutate(ctx, "update stock", id, func(p domain.Product) domain.Product {
		return stock.SetQuantity(p, warehouseID, quantity)
	})
}

// RemoveQuantity takes amount out of warehouseID, stopping at zero.
func (s *Service) RemoveQuantity(ctx context.Context, id domain.ID, warehouseID, amount int) (domain.Product, error) {
	if amount < 0 {
		return domain.Product{}, domain.NewInvalidProductError("amount", "cannot be negative", amount)
	}
	return s.mutate(ctx, "remove quantity", id, func(p domain.Product) domain.Product {
		return stock.DecrementQuantity(p, warehouseID, amount)
	})
}

// AddStock adds quantity at the user's warehouse, creating the stock line
// if the product is not held there yet.
func (s *Service) AddStock(ctx context.Context, user domain.Warehouseman, id domain.ID, quantity int) (domain.Product, error) {
	return s.AddWarehouse(ctx, id, user.WarehouseID, "", user.City, quantity)
}

// AddWarehouse adds quantity of product id at warehouseID. A warehouseID of
// zero allocates a new warehouse id; an empty name falls back to the name
// the catalog already uses for that warehouse.
func (s *Service) AddWarehouse(ctx context.Context, id domain.ID, warehouseID int, name, city string, quantity int) (domain.Product, error) {
	if quantity < 0 {
		return domain.Product{}, domain.NewInvalidProductError("quantity", "cannot be negative", quantity)
	}
	if warehouseID == 0 || name == "" {
		products, err := s.list(ctx, "add warehouse")
		if err != nil {
			return domain.Product{}, err
		}
		if warehouseID == 0 {
			warehouseID = stock.NextWarehouseID(products)
		}
		if name == "" {
			name = warehouseName(products, warehouseID)
		}
	}
	return s.mutate(ctx, "add warehouse", id, func(p domain.Product) domain.Product {
		return stock.UpsertWarehouseStock(p, warehouseID, name, city, quantity)
	})
}

// RemoveWarehouse drops the stock line of product id at warehouseID.
func (s *Service) RemoveWarehouse(ctx context.Context, id domain.ID, warehouseID int) (domain.Product, error) {
	return s.mutate(ctx, "remove warehouse", id, func(p domain.Product) domain.Product {
		return stock.RemoveWarehouseStock(p, warehouseID)
	})
}

// EditDetails changes descriptive fields and records user as the editor.
func (s *Service) EditDetails(ctx context.Context, user domain.Warehouseman, id domain.ID, details domain.ProductDetails) (domain.Product, error) {
	at := s.now()
	return s.mutate(ctx, "edit product", id, func(p domain.Product) domain.Product {
		return stock.RecordEdit(stock.ApplyDetails(p, details), user.ID, at)
	})
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id domain.ID) error {
	err := s.call(ctx, "delete product", func(ctx context.Context) error {
		return s.products.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	logger.Logger.Info().Str("product_id", string(id)).Msg("product deleted")
	return nil
}

// Warehouses lists the warehouses referenced by the catalog.
func (s *Service) Warehouses(ctx context.Context) ([]domain.Warehouse, error) {
	products, err := s.list(ctx, "list warehouses")
	if err != nil {
		return nil, err
	}
	return stock.DeriveWarehouseList(products), nil
}

// WarehouseStock reports what warehouseID holds.
func (s *Service) WarehouseStock(ctx context.Context, warehouseID int) ([]domain.WarehouseStockItem, error) {
	products, err := s.list(ctx, "warehouse stock")
	if err != nil {
		return nil, err
	}
	return stock.WarehouseStockReport(products, warehouseID), nil
}

// Statistics summarises the catalog, asking the backend when it can.
func (s *Service) Statistics(ctx context.Context) (domain.Statistics, error) {
	if src, ok := s.products.(domain.StatisticsSource); ok {
		var stats domain.Statistics
		err := s.call(ctx, "statistics", func(ctx context.Context) error {
			var err error
			stats, err = src.Statistics(ctx)
			return err
		})
		return stats, err
	}
	products, err := s.list(ctx, "statistics")
	if err != nil {
		return domain.Statistics{}, err
	}
	return stock.ComputeStatistics(products), nil
}

// Import creates products in bulk. It is not retried; a partial import
// reports every rejected product.
func (s *Service) Import(ctx context.Context, products []domain.Product) error {
	if err := s.products.BulkImport(ctx, products); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	logger.Logger.Info().Int("count", len(products)).Msg("products imported")
	return nil
}

// warehouseName is the name the catalog uses for warehouseID, or a
// generated one for a warehouse nothing is stocked at yet.
func warehouseName(products []domain.Product, warehouseID int) string {
	if w, ok := stock.FindWarehouse(products, warehouseID); ok && w.Name != "" {
		return w.Name
	}
	return fmt.Sprintf("Warehouse %d", warehouseID)
}
