package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPersistentReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")

	p, err := OpenSQLite(path, "tenant-a", zap.NewNop())
	require.NoError(t, err)

	tok := p.GetOrCreate("Hans Mueller", "<Person_1>")
	assert.Equal(t, "<Person_1>", tok)
	p.GetOrCreate("hans@example.de", "<Email_Address_2>")
	require.NoError(t, p.Flush())
	require.NoError(t, p.Close())

	// A fresh process sees the same mapping and continues the counters.
	p2, err := OpenSQLite(path, "tenant-a", zap.NewNop())
	require.NoError(t, err)
	defer p2.Close()

	assert.Equal(t, 2, p2.Len())
	assert.Equal(t, "<Person_1>", p2.GetOrCreate("Hans Mueller", "<Person_5>"))
	assert.Equal(t, "<Person_2>", p2.GetOrCreate("Marie Dupont", "<Person_1>"))
	assert.Equal(t, "Hans Mueller", p2.RestoreText("<Person_1>"))
}

func TestPersistentSessionIsolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")

	a, err := OpenSQLite(path, "tenant-a", zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	a.GetOrCreate("Hans Mueller", "<Person_1>")

	b, err := OpenSQLite(path, "tenant-b", zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	// tenant-b starts empty and mints its own counters.
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, "<Person_1>", b.GetOrCreate("Marie Dupont", "<Person_3>"))
}
