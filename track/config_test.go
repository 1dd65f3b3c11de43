package track

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, defaultCacheSize, cfg.CacheSize)
	require.True(t, cfg.FallbackOnRewriteError)
	require.Zero(t, cfg.MaxDepth)
	require.Zero(t, cfg.MaxNodes)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
maxDepth: 8
maxNodes: 10000
cacheSize: 64
leaves:
  - add
  - mul
fallbackOnRewriteError: false
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.MaxDepth)
	require.Equal(t, 10000, cfg.MaxNodes)
	require.Equal(t, 64, cfg.CacheSize)
	require.Equal(t, []string{"add", "mul"}, cfg.Leaves)
	require.False(t, cfg.FallbackOnRewriteError)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxDepth: -3\n"), 0o644))
	_, err = LoadConfig(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("maxDepth: [\n"), 0o644))
	_, err = LoadConfig(path)
	require.Error(t, err)
}

func TestNewRejectsNegativeLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxNodes = -1
	_, err := New(cfg, nil)
	require.Error(t, err)
}

func TestCacheBoundEvicts(t *testing.T) {
	c, err := newRewriteCache(2)
	require.NoError(t, err)
	c.add(cacheKey{"a", "int"}, nil)
	c.add(cacheKey{"b", "int"}, nil)
	c.add(cacheKey{"c", "int"}, nil)
	require.Equal(t, 2, c.len())
	_, ok := c.get(cacheKey{"a", "int"})
	require.False(t, ok)
}
