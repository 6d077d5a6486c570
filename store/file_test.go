package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/domain"
)

func TestFileStore_CreateGetUpdateDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "db.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	created, err := s.Create(ctx, newProduct("FileProd", domain.Stock{ID: 1, Name: "Main", Quantity: 2}))
	require.NoError(t, err)
	assert.Equal(t, domain.ID("1"), created.ID)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "FileProd", got.Name)

	got.Name = "FileProd2"
	_, err = s.Update(ctx, created.ID, got)
	require.NoError(t, err)

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	got, err = reopened.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "FileProd2", got.Name)
	assert.Equal(t, 2, got.Stocks[0].Quantity)

	require.NoError(t, s.Delete(ctx, created.ID))
	reopened, err = NewFileStore(path)
	require.NoError(t, err)
	_, err = reopened.Get(ctx, created.ID)
	assert.True(t, domain.IsProductNotFoundError(err))
}

func TestFileStore_WritesJSONServerLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, s.AddWarehousemen(domain.Warehouseman{ID: 1444, Name: "Ali", SecretKey: "AL123"}))
	_, err = s.Create(context.Background(), newProduct("Widget"))
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string][]map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Len(t, raw["products"], 1)
	require.Len(t, raw["warehousemans"], 1)
	assert.Equal(t, float64(1), raw["products"][0]["id"])
	assert.Equal(t, "AL123", raw["warehousemans"][0]["secretKey"])

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}

func TestFileStore_LoadsExistingDatabase(t *testing.T) {
	dir := t.TempDir()

	t.Run("object layout", func(t *testing.T) {
		path := filepath.Join(dir, "db.json")
		db := `{"products":[{"id":5,"name":"Hammer","price":9.5,"stocks":[]}],
			"warehousemans":[{"id":1,"name":"Ali","secretKey":"K1","warehouseId":2}]}`
		require.NoError(t, os.WriteFile(path, []byte(db), 0o644))

		s, err := NewFileStore(path)
		require.NoError(t, err)
		p, err := s.Get(context.Background(), "5")
		require.NoError(t, err)
		assert.Equal(t, "Hammer", p.Name)

		w, err := s.FindBySecretKey(context.Background(), "K1")
		require.NoError(t, err)
		assert.Equal(t, 2, w.WarehouseID)
	})

	t.Run("bare product list", func(t *testing.T) {
		path := filepath.Join(dir, "list.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a","name":"A"}]`), 0o644))

		s, err := NewFileStore(path)
		require.NoError(t, err)
		out, err := s.List(context.Background())
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, domain.ID("a"), out[0].ID)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))
		s, err := NewFileStore(path)
		require.NoError(t, err)
		out, err := s.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))
		_, err := NewFileStore(path)
		assert.Error(t, err)
	})
}

func TestFileStore_BulkImportSavesAcceptedProducts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	err = s.BulkImport(context.Background(), []domain.Product{
		{ID: "1", Name: "ok"},
		{ID: "2"},
	})
	require.Error(t, err)
	assert.True(t, domain.IsInvalidProductError(err))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	out, err := reopened.List(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].Name)
}

func TestFileStore_FailedWriteLeavesFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = s.Create(context.Background(), domain.Product{})
	require.Error(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "rejected writes must not create the file")
}

func TestFileStore_UnsavedWritesAreRolledBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	saved, err := s.Create(ctx, domain.Product{Name: "Sel", Barcode: "111"})
	require.NoError(t, err)

	// a directory where the temp file goes makes every save fail
	require.NoError(t, os.Mkdir(path+".tmp", 0o755))

	created, err := s.Create(ctx, domain.Product{Name: "Sucre", Barcode: "222"})
	require.Error(t, err)
	assert.Equal(t, domain.Product{}, created)

	renamed := saved
	renamed.Name = "Sel fin"
	updated, err := s.Update(ctx, saved.ID, renamed)
	require.Error(t, err)
	assert.Equal(t, domain.Product{}, updated)

	require.Error(t, s.Delete(ctx, saved.ID))

	products, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Sel", products[0].Name)

	// disk still holds the state from before the failed writes
	require.NoError(t, os.Remove(path+".tmp"))
	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	onDisk, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, onDisk, 1)
	assert.Equal(t, saved.ID, onDisk[0].ID)
	assert.Equal(t, "Sel", onDisk[0].Name)
}
