// Package store provides backends for the inventory client: an HTTP client
// for the remote REST API and local in-memory and file backends that speak
// the same contract.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"stockroom/domain"
)

// InMemoryStore is a thread-safe in-memory backend. Products keep their
// insertion order, like the remote catalog does.
type InMemoryStore struct {
	mu       sync.RWMutex
	products []domain.Product
	staff    []domain.Warehouseman
}

// NewInMemoryStore constructs a new InMemoryStore
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// compile-time assertions
var (
	_ domain.ProductStore      = (*InMemoryStore)(nil)
	_ domain.WarehousemanStore = (*InMemoryStore)(nil)
)

// AddWarehousemen registers staff members that can log in.
func (s *InMemoryStore) AddWarehousemen(staff ...domain.Warehouseman) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff = append(s.staff, staff...)
}

func (s *InMemoryStore) List(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, cloneProduct(p))
	}
	return out, nil
}

func (s *InMemoryStore) Get(ctx context.Context, id domain.ID) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Product{}, domain.NewProductNotFoundError(id)
	}
	return cloneProduct(s.products[i]), nil
}

// Create stores product. An empty id is replaced by the next free integer,
// the way the remote backend assigns ids.
func (s *InMemoryStore) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	if err := domain.ValidateProduct(product); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(product)
}

func (s *InMemoryStore) Update(ctx context.Context, id domain.ID, product domain.Product) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	if err := domain.ValidateProduct(product); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Product{}, domain.NewProductNotFoundError(id)
	}
	product.ID = id
	s.products[i] = cloneProduct(product)
	return cloneProduct(product), nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id domain.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.NewProductNotFoundError(id)
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	return nil
}

// BulkImport validates products concurrently and then inserts the valid
// ones in input order. Every failure is reported in the returned error.
func (s *InMemoryStore) BulkImport(ctx context.Context, products []domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}

	invalid, err := validateAll(ctx, products)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for i, p := range products {
		if invalid[i] != nil {
			errs = append(errs, invalid[i])
			continue
		}
		if _, err := s.insertLocked(p); err != nil {
			errs = append(errs, fmt.Errorf("id=%s: %w", p.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *InMemoryStore) FindBySecretKey(ctx context.Context, secretKey string) (domain.Warehouseman, error) {
	if err := ctx.Err(); err != nil {
		return domain.Warehouseman{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if secretKey != "" {
		for _, w := range s.staff {
			if w.SecretKey == secretKey {
				return w, nil
			}
		}
	}
	return domain.Warehouseman{}, domain.NewWarehousemanNotFoundError()
}

// snapshot copies the full state, for backends that persist it.
func (s *InMemoryStore) snapshot() database {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db := database{
		Products:      make([]domain.Product, 0, len(s.products)),
		Warehousemans: make([]domain.Warehouseman, len(s.staff)),
	}
	for _, p := range s.products {
		db.Products = append(db.Products, cloneProduct(p))
	}
	copy(db.Warehousemans, s.staff)
	return db
}

// restore replaces the products with a snapshot taken earlier.
func (s *InMemoryStore) restore(db database) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = db.Products
}

func (s *InMemoryStore) insertLocked(product domain.Product) (domain.Product, error) {
	if product.ID == "" {
		product.ID = s.nextIDLocked()
	} else if s.indexOf(product.ID) >= 0 {
		return domain.Product{}, domain.NewDuplicateProductError(product.ID)
	}
	s.products = append(s.products, cloneProduct(product))
	return cloneProduct(product), nil
}

func (s *InMemoryStore) nextIDLocked() domain.ID {
	var highest int64
	for _, p := range s.products {
		if n, ok := p.ID.Int(); ok && n > highest {
			highest = n
		}
	}
	return domain.ID(strconv.FormatInt(highest+1, 10))
}

func (s *InMemoryStore) indexOf(id domain.ID) int {
	for i, p := range s.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// validateAll checks products with a small worker pool. The result holds
// one entry per product, nil when the product is valid.
func validateAll(ctx context.Context, products []domain.Product) ([]error, error) {
	const maxWorkers = 10

	type job struct {
		index   int
		product domain.Product
	}

	results := make([]error, len(products))
	jobs := make(chan job)

	var wg sync.WaitGroup
	worker := func() {
		defer wg.Done()
		for j := range jobs {
			if err := domain.ValidateProduct(j.product); err != nil {
				results[j.index] = fmt.Errorf("id=%s: %w", j.product.ID, err)
			}
		}
	}

	nWorkers := min(maxWorkers, len(products))
	wg.Add(nWorkers)
	for i := 0; i < nWorkers; i++ {
		go worker()
	}

	var cancelled error
feed:
	for i, p := range products {
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		case jobs <- job{index: i, product: p}:
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}
	return results, nil
}

func cloneProduct(p domain.Product) domain.Product {
	out := p
	if p.Stocks != nil {
		out.Stocks = append([]domain.Stock(nil), p.Stocks...)
	}
	if p.EditedBy != nil {
		out.EditedBy = append([]domain.EditRecord(nil), p.EditedBy...)
	}
	return out
}
