package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreLoadCreatesAnchor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients-config.json")
	fs, err := NewFileStore(path)
	require.NoError(t, err)

	snap, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, snap.SchemaVersion)
	assert.Empty(t, snap.Clients)

	// 空库也要立即落盘。
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.json")
	fs, err := NewFileStore(path)
	require.NoError(t, err)

	want := Snapshot{Clients: map[string]ClientDoc{
		"acct1": {Password: "secret1", Proxies: []string{"http://a:b@1.2.3.4:100"}},
		"acct2": {Password: "secret2", Proxies: nil},
	}}
	require.NoError(t, fs.Save(want))

	fs2, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := fs2.Load()
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, got.SchemaVersion)
	assert.Equal(t, want.Clients["acct1"], got.Clients["acct1"])
	assert.Contains(t, got.Clients, "acct2")
}

func TestFileStoreRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schemaVersion": 99, "clients": {}}`), 0o600))

	fs, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = fs.Load()
	assert.ErrorContains(t, err, "schema version 99")
}

func TestFileStoreRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"clients": {`), 0o600))

	fs, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = fs.Load()
	assert.Error(t, err)
}

func TestFileStoreSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	require.NoError(t, fs.Save(Snapshot{Clients: map[string]ClientDoc{}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.json", entries[0].Name())
}
