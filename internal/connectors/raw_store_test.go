package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "raw")
	store := NewRawStore(dir)
	raw := []byte("Subject: Itinerary\r\n\r\nbody")

	hash, path, err := store.Save(raw)
	require.NoError(t, err)
	sum := sha256.Sum256(raw)
	assert.Equal(t, hex.EncodeToString(sum[:]), hash)
	assert.Equal(t, filepath.Join(dir, hash+".eml"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	again, againPath, err := store.Save(raw)
	require.NoError(t, err)
	assert.Equal(t, hash, again)
	assert.Equal(t, path, againPath)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
