// Package config loads the server's runtime configuration from flags with
// environment-variable fallback defaults.
package config

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// AccessKind distinguishes the operation an Authorize hook is asked about.
type AccessKind string

const (
	AccessRead  AccessKind = "read"
	AccessWrite AccessKind = "write"
)

// Config is the single configuration object consulted by the server. The
// zero value is not usable; build one with Load/LoadArgs or by filling in
// RepositoryRoot and the two service flags and calling Defaults.
type Config struct {
	RepositoryRoot     string
	UploadPackEnabled  bool
	ReceivePackEnabled bool
	Agent              string

	Authorize                func(ctx context.Context, repoName string, kind AccessKind) (bool, error)
	RepositoryResolver       func(ctx context.Context) (string, bool)
	RepositoryNameNormaliser func(name string) string
	RepositoryNameValidator  func(name string) bool
	OnReceivePackCompleted   func(ctx context.Context, repoName string, updatedRefs map[string]string)

	// Ambient operational settings, not part of spec.md's Configuration
	// object but required to run the process.
	ListenAddr  string
	LogLevel    string
	MetricsPath string
	HealthPath  string
}

// DefaultAgent is used when Agent is left empty.
const DefaultAgent = "gitsmartd/0"

var validRepoName = regexp.MustCompile(`^[A-Za-z0-9_\-/]+$`)

// Defaults fills in an empty Agent and nil Authorize, validator and
// normaliser hooks with their defaults. It leaves UploadPackEnabled and
// ReceivePackEnabled as they are; only LoadArgs defaults those to true. It
// is called automatically by LoadArgs, and is exported so callers building
// a Config programmatically (tests, embedders) get the same hook fallbacks.
func (c *Config) Defaults() {
	if c.Agent == "" {
		c.Agent = DefaultAgent
	}
	if c.Authorize == nil {
		c.Authorize = func(context.Context, string, AccessKind) (bool, error) { return true, nil }
	}
	if c.RepositoryNameValidator == nil {
		c.RepositoryNameValidator = DefaultRepositoryNameValidator
	}
	if c.RepositoryNameNormaliser == nil {
		c.RepositoryNameNormaliser = func(name string) string { return name }
	}
}

// DefaultRepositoryNameValidator implements spec.md's §6 default rules:
// reject empty, reject "..", reject leading/trailing "/", reject
// consecutive "/", reject characters outside [A-Za-z0-9_-/].
func DefaultRepositoryNameValidator(name string) bool {
	if name == "" {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return false
	}
	if strings.Contains(name, "//") {
		return false
	}
	return validRepoName.MatchString(name)
}

// Load parses configuration from os.Args[1:] and the environment.
func Load() (*Config, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses configuration from the given argument list and the
// environment, mirroring smart-git-proxy/internal/config's flag+env layering.
func LoadArgs(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("gitsmartd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.RepositoryRoot, "repository-root", envOrDefault("REPOSITORY_ROOT", ""), "absolute path under which bare repositories live")
	fs.BoolVar(&cfg.UploadPackEnabled, "upload-pack-enabled", envOrDefaultBool("UPLOAD_PACK_ENABLED", true), "enable git-upload-pack (fetch/clone)")
	fs.BoolVar(&cfg.ReceivePackEnabled, "receive-pack-enabled", envOrDefaultBool("RECEIVE_PACK_ENABLED", true), "enable git-receive-pack (push)")
	fs.StringVar(&cfg.Agent, "agent", envOrDefault("AGENT", DefaultAgent), "agent string advertised in capabilities")
	fs.StringVar(&cfg.ListenAddr, "listen-addr", envOrDefault("LISTEN_ADDR", ":8080"), "HTTP listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", envOrDefault("LOG_LEVEL", "info"), "log level: debug,info,warn,error")
	fs.StringVar(&cfg.MetricsPath, "metrics-path", envOrDefault("METRICS_PATH", "/metrics"), "path for Prometheus metrics")
	fs.StringVar(&cfg.HealthPath, "health-path", envOrDefault("HEALTH_PATH", "/healthz"), "path for health checks")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.RepositoryRoot == "" {
		return nil, fmt.Errorf("config: repository-root is required")
	}

	cfg.Defaults()

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
