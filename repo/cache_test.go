package repo_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanogit-community/gitsmartd/repo"
)

func TestCache_GetOrOpenReturnsSameHandle(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "repo.git")
	_, err := repo.Init(dir, 20)
	require.NoError(t, err)

	c := repo.NewCache(20)
	a, err := c.GetOrOpen(dir)
	require.NoError(t, err)
	b, err := c.GetOrOpen(dir)
	require.NoError(t, err)
	require.Same(t, a, b)
}

func TestCache_EvictForcesReopen(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "repo.git")
	_, err := repo.Init(dir, 20)
	require.NoError(t, err)

	c := repo.NewCache(20)
	a, err := c.GetOrOpen(dir)
	require.NoError(t, err)

	c.Evict(dir)

	b, err := c.GetOrOpen(dir)
	require.NoError(t, err)
	require.NotSame(t, a, b)
}
