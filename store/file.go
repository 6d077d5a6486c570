package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"stockroom/domain"
)

// database is the on-disk layout: one collection per REST resource, the
// same shape a json-server db.json has.
type database struct {
	Products      []domain.Product      `json:"products"`
	Warehousemans []domain.Warehouseman `json:"warehousemans"`
}

// FileStore is a JSON file-backed backend. Reads are served from memory;
// every successful write rewrites the file.
type FileStore struct {
	mu   sync.Mutex
	mem  *InMemoryStore
	path string
}

// compile-time assertions
var (
	_ domain.ProductStore      = (*FileStore)(nil)
	_ domain.WarehousemanStore = (*FileStore)(nil)
)

// NewFileStore constructs a FileStore at the given path. If the file exists it will be loaded.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		mem:  NewInMemoryStore(),
		path: path,
	}
	if err := s.loadFromFile(); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}

func (s *FileStore) loadFromFile() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			// no file yet; that's fine
			return nil
		}
		return err
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}

	var db database
	if b[0] == '[' {
		// a bare product list
		err = json.Unmarshal(b, &db.Products)
	} else {
		err = json.Unmarshal(b, &db)
	}
	if err != nil {
		return err
	}

	s.mem.products = db.Products
	s.mem.staff = db.Warehousemans
	return nil
}

func (s *FileStore) saveToFile() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s.mem.snapshot(), "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// persist saves the current state, putting the products back to before
// when the file cannot be written so memory never runs ahead of disk.
func (s *FileStore) persist(before database) error {
	if err := s.saveToFile(); err != nil {
		s.mem.restore(before)
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	return nil
}

// AddWarehousemen registers staff members and persists them.
func (s *FileStore) AddWarehousemen(staff ...domain.Warehouseman) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem.AddWarehousemen(staff...)
	return s.saveToFile()
}

func (s *FileStore) List(ctx context.Context) ([]domain.Product, error) {
	return s.mem.List(ctx)
}

func (s *FileStore) Get(ctx context.Context, id domain.ID) (domain.Product, error) {
	return s.mem.Get(ctx, id)
}

func (s *FileStore) FindBySecretKey(ctx context.Context, secretKey string) (domain.Warehouseman, error) {
	return s.mem.FindBySecretKey(ctx, secretKey)
}

func (s *FileStore) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.mem.snapshot()
	created, err := s.mem.Create(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.persist(before); err != nil {
		return domain.Product{}, err
	}
	return created, nil
}

func (s *FileStore) Update(ctx context.Context, id domain.ID, product domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.mem.snapshot()
	updated, err := s.mem.Update(ctx, id, product)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.persist(before); err != nil {
		return domain.Product{}, err
	}
	return updated, nil
}

func (s *FileStore) Delete(ctx context.Context, id domain.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.mem.snapshot()
	if err := s.mem.Delete(ctx, id); err != nil {
		return err
	}
	return s.persist(before)
}

// BulkImport imports through the in-memory backend and saves whatever was
// accepted, even when some products were rejected.
func (s *FileStore) BulkImport(ctx context.Context, products []domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	importErr := s.mem.BulkImport(ctx, products)
	if errors.Is(importErr, context.Canceled) || errors.Is(importErr, context.DeadlineExceeded) {
		return importErr
	}
	if err := s.saveToFile(); err != nil {
		return errors.Join(importErr, err)
	}
	return importErr
}
