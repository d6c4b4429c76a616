package server

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/nanogit-community/gitsmartd/config"
)

// ErrRepositoryEscapesRoot is returned when a resolved repository path,
// once canonicalised, would fall outside the configured repository root.
var ErrRepositoryEscapesRoot = errors.New("server: resolved repository path escapes repository root")

type candidateNameKey struct{}

// withCandidateName attaches the path-derived repository name candidate the
// transport extracted from the request URL, for DefaultRepositoryResolver
// to pick up.
func withCandidateName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, candidateNameKey{}, name)
}

// DefaultRepositoryResolver reads the candidate name the transport stored
// in ctx. A custom config.Config.RepositoryResolver can replace this to
// source the name from elsewhere (a subdomain, an auth token claim, ...).
func DefaultRepositoryResolver(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(candidateNameKey{}).(string)
	return name, ok
}

// ResolveRepositoryPath runs the configured resolver, normaliser and
// validator in sequence, then maps the surviving name onto an absolute,
// root-confined directory that actually exists on disk (trying both
// "<root>/<name>" and "<root>/<name>.git"), per spec.md's repository-name
// resolution rules. ok is false when the name was rejected or no matching
// directory exists.
func ResolveRepositoryPath(ctx context.Context, cfg *config.Config) (name, dir string, ok bool, err error) {
	resolver := cfg.RepositoryResolver
	if resolver == nil {
		resolver = DefaultRepositoryResolver
	}

	name, ok = resolver(ctx)
	if !ok {
		return "", "", false, nil
	}

	if cfg.RepositoryNameNormaliser != nil {
		name = cfg.RepositoryNameNormaliser(name)
	}
	name = strings.TrimSuffix(name, ".git")

	validator := cfg.RepositoryNameValidator
	if validator == nil {
		validator = config.DefaultRepositoryNameValidator
	}
	if !validator(name) {
		return name, "", false, nil
	}

	root, err := filepath.Abs(cfg.RepositoryRoot)
	if err != nil {
		return name, "", false, err
	}

	for _, candidate := range []string{name, name + ".git"} {
		dir, escaped, statErr := confinedPath(root, candidate)
		if escaped {
			return name, "", false, ErrRepositoryEscapesRoot
		}
		if statErr != nil {
			continue
		}
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return name, dir, true, nil
		}
	}

	return name, "", false, nil
}

// candidateDirs returns the same "<root>/<name>" and "<root>/<name>.git"
// paths ResolveRepositoryPath tries, so a caller that just got ok=false can
// evict any cached Store handle left over from before the directory
// disappeared.
func candidateDirs(cfg *config.Config, name string) []string {
	root, err := filepath.Abs(cfg.RepositoryRoot)
	if err != nil {
		return nil
	}
	dirs := make([]string, 0, 2)
	for _, candidate := range []string{name, name + ".git"} {
		dir, escaped, err := confinedPath(root, candidate)
		if err != nil || escaped {
			continue
		}
		dirs = append(dirs, dir)
	}
	return dirs
}

// confinedPath joins root and name, cleans the result, and reports whether
// it escapes root.
func confinedPath(root, name string) (dir string, escaped bool, err error) {
	dir = filepath.Clean(filepath.Join(root, filepath.FromSlash(name)))

	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", false, err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", true, nil
	}
	return dir, false, nil
}
