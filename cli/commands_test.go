package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/app"
	"stockroom/domain"
	"stockroom/session"
	"stockroom/store"
)

var ali = domain.Warehouseman{ID: 1444, Name: "Ali", City: "Oujda", SecretKey: "AL123", WarehouseID: 1}

// reset cobra + global state between tests
func resetCLI() {
	rootCmd.SetArgs(nil)
	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)
	rootCmd.SetIn(nil)
	resetFlags(rootCmd)
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
	backend = nil
	authenticator = nil
	service = nil
}

func useMemoryBackend(t *testing.T) *store.InMemoryStore {
	t.Helper()
	b := store.NewInMemoryStore()
	b.AddWarehousemen(ali)
	setup(b, session.New(afero.NewMemMapFs(), "/session.json"), app.WithRetry(1, 0))
	t.Cleanup(resetCLI)
	return b
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	resetFlags(rootCmd)
	return out.String(), errOut.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, _, err := run(t, args...)
	require.NoError(t, err, "stockroom %s", strings.Join(args, " "))
	return out
}

func decodeProduct(t *testing.T, out string) domain.Product {
	t.Helper()
	var p domain.Product
	require.NoError(t, json.Unmarshal([]byte(out), &p), out)
	return p
}

func TestProductFlow(t *testing.T) {
	b := useMemoryBackend(t)

	out := mustRun(t, "login", "AL123")
	assert.Contains(t, out, "logged in as Ali (warehouse 1)")

	// ADD
	p := decodeProduct(t, mustRun(t, "add", "--name", "Lait", "--barcode", "111", "--price", "7.5", "--quantity", "4"))
	assert.Equal(t, domain.ID("1"), p.ID)
	require.Len(t, p.Stocks, 1)
	assert.Equal(t, domain.Stock{ID: 1, Name: "Warehouse 1", Quantity: 4, Localisation: domain.Localisation{City: "Oujda"}}, p.Stocks[0])

	// LIST
	var listed []domain.Product
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "list", "--output", "json", "--city", "Oujda")), &listed))
	require.Len(t, listed, 1)
	assert.Contains(t, mustRun(t, "list"), "Warehouse 1:4")

	// SCAN
	assert.Equal(t, "Lait", decodeProduct(t, mustRun(t, "scan", "111")).Name)
	_, stderr, err := run(t, "scan", "999")
	require.NoError(t, err)
	assert.Contains(t, stderr, "no product with barcode 999")

	// STOCK
	p = decodeProduct(t, mustRun(t, "stock", "set", "1", "--quantity", "10"))
	assert.Equal(t, 10, p.Stocks[0].Quantity)
	p = decodeProduct(t, mustRun(t, "stock", "remove", "1", "--amount", "3"))
	assert.Equal(t, 7, p.Stocks[0].Quantity)
	p = decodeProduct(t, mustRun(t, "stock", "add", "1", "--quantity", "2"))
	assert.Equal(t, 9, p.Stocks[0].Quantity)

	// WAREHOUSES
	p = decodeProduct(t, mustRun(t, "warehouse", "add", "1", "--name", "Rabat Nord", "--city", "Rabat", "--quantity", "5"))
	require.Len(t, p.Stocks, 2)
	assert.Equal(t, 2, p.Stocks[1].ID)

	var items []domain.WarehouseStockItem
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "warehouse", "stock", "2")), &items))
	assert.Equal(t, []domain.WarehouseStockItem{{ProductID: "1", Name: "Lait", Quantity: 5}}, items)
	assert.Contains(t, mustRun(t, "warehouse", "list"), "Rabat Nord")

	var stats domain.Statistics
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "stats")), &stats))
	assert.Equal(t, 1, stats.TotalProducts)
	assert.True(t, decimal.NewFromInt(105).Equal(stats.TotalStockValue), stats.TotalStockValue.String())

	// EDIT
	p = decodeProduct(t, mustRun(t, "edit", "1", "--price", "8", "--supplier", "Centrale"))
	assert.True(t, decimal.NewFromInt(8).Equal(p.Price))
	assert.Equal(t, "Centrale", p.Supplier)
	assert.Equal(t, "Lait", p.Name, "unchanged flags are left alone")
	require.Len(t, p.EditedBy, 2)
	assert.Equal(t, 1444, p.EditedBy[1].EditorID)

	out, stderr, err = run(t, "get", "1")
	require.NoError(t, err)
	assert.Equal(t, "Centrale", decodeProduct(t, out).Supplier, "stdout stays plain JSON")
	assert.Contains(t, stderr, "last edited by warehouseman 1444 at ")

	// SHEET
	sheet := mustRun(t, "sheet", "1")
	assert.Contains(t, sheet, "<h1>Lait</h1>")
	assert.Contains(t, sheet, "<dt>Last edited by</dt><dd>Warehouseman 1444, ")

	// DROP
	p = decodeProduct(t, mustRun(t, "stock", "drop", "1", "--warehouse", "2"))
	assert.Len(t, p.Stocks, 1)

	// DELETE
	assert.Contains(t, mustRun(t, "delete", "--force", "1"), "deleted")
	_, err = b.Get(context.Background(), "1")
	assert.True(t, domain.IsProductNotFoundError(err))

	_, stderr, err = run(t, "get", "1")
	require.NoError(t, err)
	assert.Contains(t, stderr, "not found")
}

func TestListSearchIgnoresBarcode(t *testing.T) {
	useMemoryBackend(t)
	mustRun(t, "login", "AL123")
	mustRun(t, "add", "--name", "Lait", "--type", "Laitier", "--barcode", "6111", "--supplier", "Centrale")

	for _, c := range rootCmd.Commands() {
		if c.Name() == "list" {
			assert.NotContains(t, c.Flags().Lookup("search").Usage, "barcode")
		}
	}

	var listed []domain.Product
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "list", "--output", "json", "--search", "6111")), &listed))
	assert.Empty(t, listed, "barcodes are looked up with scan, not search")

	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "list", "--output", "json", "--search", "centr")), &listed))
	assert.Len(t, listed, 1)
}

func TestCommandsNeedingLogin(t *testing.T) {
	useMemoryBackend(t)

	for _, args := range [][]string{
		{"add", "--name", "X"},
		{"edit", "1", "--name", "Y"},
		{"stock", "add", "1", "--quantity", "1"},
		{"stock", "set", "1", "--quantity", "1"},
	} {
		_, _, err := run(t, args...)
		assert.ErrorIs(t, err, domain.ErrNotAuthenticated, "args %v", args)
	}
}

func TestNegativeQuantityRejected(t *testing.T) {
	b := useMemoryBackend(t)
	_, err := b.Create(context.Background(), domain.Product{Name: "Lait", Stocks: []domain.Stock{{ID: 1, Quantity: 2}}})
	require.NoError(t, err)

	for _, args := range [][]string{
		{"stock", "set", "1", "--warehouse", "1", "--quantity", "-1"},
		{"stock", "remove", "1", "--warehouse", "1", "--amount", "-1"},
		{"warehouse", "add", "1", "--quantity", "-1"},
	} {
		_, _, err := run(t, args...)
		assert.True(t, domain.IsInvalidProductError(err), "args %v: %v", args, err)
	}
}

func TestLoginLogoutWhoami(t *testing.T) {
	useMemoryBackend(t)

	_, _, err := run(t, "login", "WRONG")
	assert.EqualError(t, err, "invalid secret code")

	assert.Contains(t, mustRun(t, "whoami"), "not logged in")

	mustRun(t, "login", "AL123")
	out := mustRun(t, "whoami")
	assert.Contains(t, out, `"name": "Ali"`)
	assert.NotContains(t, out, "AL123")

	assert.Contains(t, mustRun(t, "logout"), "logged out")
	assert.Contains(t, mustRun(t, "whoami"), "not logged in")
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	b := useMemoryBackend(t)
	_, err := b.Create(context.Background(), domain.Product{Name: "Lait"})
	require.NoError(t, err)

	rootCmd.SetIn(strings.NewReader("n\n"))
	assert.Contains(t, mustRun(t, "delete", "1"), "aborted")
	_, err = b.Get(context.Background(), "1")
	require.NoError(t, err)

	rootCmd.SetIn(strings.NewReader("y\n"))
	assert.Contains(t, mustRun(t, "delete", "1"), "deleted")
}

func TestShell(t *testing.T) {
	useMemoryBackend(t)

	rootCmd.SetIn(strings.NewReader("login AL123\n\nadd --name Sel --quantity 2\nlist\nexit\nwhoami\n"))
	out := mustRun(t, "shell")

	assert.Contains(t, out, "stockroom> ")
	assert.Contains(t, out, "logged in as Ali")
	assert.Contains(t, out, "Sel")
	assert.NotContains(t, out, `"warehouseId"`, "nothing runs after exit")
}

func TestImportExport(t *testing.T) {
	b := useMemoryBackend(t)
	dir := t.TempDir()

	nd := filepath.Join(dir, "seed.ndjson")
	require.NoError(t, os.WriteFile(nd, []byte(
		`{"name":"Lait","price":7.5,"stocks":[{"id":1,"name":"Oujda Central","quantity":3,"localisation":{"city":"Oujda"}}]}`+"\n"+
			`{"name":"Sel","price":1,"stocks":[]}`+"\n"), 0o644))
	mustRun(t, "import", "--file", nd)

	all, err := b.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)

	exported := filepath.Join(dir, "out.json")
	mustRun(t, "export", "--file", exported, "--in-stock")
	raw, err := os.ReadFile(exported)
	require.NoError(t, err)
	products, err := decodeProducts(raw)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Lait", products[0].Name)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("this is not json"), 0o644))
	_, _, err = run(t, "import", "--file", bad)
	assert.Error(t, err)

	_, _, err = run(t, "import")
	assert.EqualError(t, err, "--file required")
	_, _, err = run(t, "export")
	assert.EqualError(t, err, "--file required")
}

func TestDecodeProducts(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		wantErr bool
	}{
		{"array", `[{"name":"A"},{"name":"B"}]`, []string{"A", "B"}, false},
		{"ndjson with blank lines", "{\"name\":\"A\"}\n\n{\"name\":\"B\"}\n", []string{"A", "B"}, false},
		{"single object", `{"name":"A"}`, []string{"A"}, false},
		{"empty", "  \n", nil, true},
		{"garbage", "nope", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeProducts([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			var names []string
			for _, p := range got {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestPersistentPreRun_BackendErrors(t *testing.T) {
	t.Cleanup(resetCLI)
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"unknown backend", []string{"--backend", "unknown", "list"}},
		{"file backend without path", []string{"--backend", "file", "--store-file", "", "list"}},
		{"bad api url", []string{"--backend", "http", "--api-url", "localhost", "list"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetCLI()
			args := append([]string{"--session-file", filepath.Join(dir, "s.json"), "--log-level", "off"}, tt.args...)
			_, _, err := run(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestFileBackendPersists(t *testing.T) {
	t.Cleanup(resetCLI)
	dir := t.TempDir()
	db := filepath.Join(dir, "db.json")
	require.NoError(t, os.WriteFile(db, []byte(`{"products":[],"warehousemans":[{"id":1444,"name":"Ali","city":"Oujda","secretKey":"AL123","warehouseId":1}]}`), 0o644))
	global := []string{"--backend", "file", "--store-file", db, "--session-file", filepath.Join(dir, "session.json"), "--log-level", "off"}

	resetCLI()
	mustRun(t, append(global, "login", "AL123")...)

	resetCLI()
	mustRun(t, append(global, "add", "--name", "Lait", "--quantity", "3")...)

	reopened, err := store.NewFileStore(db)
	require.NoError(t, err)
	all, err := reopened.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 3, all[0].Stocks[0].Quantity)
}

func TestServeRefusesRemoteBackend(t *testing.T) {
	t.Cleanup(resetCLI)
	remote, err := store.NewHTTPStore("http://127.0.0.1:1")
	require.NoError(t, err)
	setup(remote, session.New(afero.NewMemMapFs(), "/s.json"))

	_, _, err = run(t, "serve")
	assert.ErrorContains(t, err, "local backend")
}
