package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreFactory(t *testing.T) {
	st, err := NewStore("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &InMemoryStore{}, st)

	st, err = NewStore("file", filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, st)

	st, err = NewStore("http", "http://localhost:3000", WithImportWorkers(2))
	require.NoError(t, err)
	assert.IsType(t, &HTTPStore{}, st)
}

func TestNewStoreFactory_Errors(t *testing.T) {
	cases := []struct {
		kind, target string
	}{
		{"file", ""},
		{"http", ""},
		{"http", "localhost"},
		{"http", "://bad"},
		{"postgres", "x"},
	}
	for _, tc := range cases {
		_, err := NewStore(tc.kind, tc.target)
		assert.Error(t, err, "kind=%s target=%s", tc.kind, tc.target)
	}
}
