package config_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanogit-community/gitsmartd/config"
)

func TestLoadArgs_RequiresRepositoryRoot(t *testing.T) {
	t.Parallel()

	_, err := config.LoadArgs(nil)
	require.Error(t, err)
}

func TestLoadArgs_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadArgs([]string{"-repository-root", "/srv/repos"})
	require.NoError(t, err)

	require.Equal(t, "/srv/repos", cfg.RepositoryRoot)
	require.True(t, cfg.UploadPackEnabled)
	require.True(t, cfg.ReceivePackEnabled)
	require.Equal(t, config.DefaultAgent, cfg.Agent)
	require.Equal(t, ":8080", cfg.ListenAddr)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "/metrics", cfg.MetricsPath)
	require.Equal(t, "/healthz", cfg.HealthPath)

	require.NotNil(t, cfg.Authorize)
	ok, err := cfg.Authorize(context.Background(), "any/repo", config.AccessWrite)
	require.NoError(t, err)
	require.True(t, ok)

	require.NotNil(t, cfg.RepositoryNameValidator)
	require.NotNil(t, cfg.RepositoryNameNormaliser)
}

func TestLoadArgs_Overrides(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadArgs([]string{
		"-repository-root", "/srv/repos",
		"-upload-pack-enabled=false",
		"-agent", "gitsmartd/test",
		"-log-level", "debug",
	})
	require.NoError(t, err)

	require.False(t, cfg.UploadPackEnabled)
	require.Equal(t, "gitsmartd/test", cfg.Agent)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestDefaultRepositoryNameValidator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ok   bool
	}{
		{"", false},
		{"repo", true},
		{"group/repo", true},
		{"../escape", false},
		{"/leading", false},
		{"trailing/", false},
		{"double//slash", false},
		{"bad name", false},
		{"bad$char", false},
		{"under_score-dash", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.ok, config.DefaultRepositoryNameValidator(tt.name))
		})
	}
}

func TestConfig_DefaultsDoesNotOverrideSetFields(t *testing.T) {
	t.Parallel()

	called := false
	cfg := &config.Config{
		RepositoryRoot: "/srv/repos",
		Authorize: func(context.Context, string, config.AccessKind) (bool, error) {
			called = true
			return false, nil
		},
	}
	cfg.Defaults()

	ok, err := cfg.Authorize(context.Background(), "x", config.AccessRead)
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, called)
}
