package server_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanogit-community/gitsmartd/config"
	"github.com/nanogit-community/gitsmartd/repo"
	"github.com/nanogit-community/gitsmartd/server"
)

func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	cfg := &config.Config{RepositoryRoot: root, UploadPackEnabled: true, ReceivePackEnabled: true}
	cfg.Defaults()
	return cfg
}

func TestResolveRepositoryPath_FindsBareDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, err := repo.Init(filepath.Join(root, "demo.git"), 20)
	require.NoError(t, err)

	cfg := testConfig(t, root)
	cfg.RepositoryResolver = func(context.Context) (string, bool) { return "demo", true }

	name, dir, ok, err := server.ResolveRepositoryPath(context.Background(), cfg)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "demo", name)
	require.Equal(t, filepath.Join(root, "demo.git"), dir)
}

func TestResolveRepositoryPath_MissingDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := testConfig(t, root)
	cfg.RepositoryResolver = func(context.Context) (string, bool) { return "ghost", true }

	_, _, ok, err := server.ResolveRepositoryPath(context.Background(), cfg)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResolveRepositoryPath_RejectsInvalidName(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := testConfig(t, root)
	cfg.RepositoryResolver = func(context.Context) (string, bool) { return "../escape", true }

	_, _, ok, err := server.ResolveRepositoryPath(context.Background(), cfg)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResolveRepositoryPath_NoCandidate(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := testConfig(t, root)
	cfg.RepositoryResolver = func(context.Context) (string, bool) { return "", false }

	_, _, ok, err := server.ResolveRepositoryPath(context.Background(), cfg)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResolveRepositoryPath_StripsDotGitSuffix(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "plain", "objects"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "plain", "refs"), 0o755))

	cfg := testConfig(t, root)
	cfg.RepositoryResolver = func(context.Context) (string, bool) { return "plain.git", true }

	name, dir, ok, err := server.ResolveRepositoryPath(context.Background(), cfg)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "plain", name)
	require.Equal(t, filepath.Join(root, "plain"), dir)
}
