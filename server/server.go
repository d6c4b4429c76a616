// Package server implements the three Git Smart HTTP routes
// (info/refs, git-upload-pack, git-receive-pack) against a cache of
// filesystem-backed bare repositories, with no external git process
// involved.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nanogit-community/gitsmartd/config"
	"github.com/nanogit-community/gitsmartd/hash"
	"github.com/nanogit-community/gitsmartd/internal/httperr"
	"github.com/nanogit-community/gitsmartd/log"
	"github.com/nanogit-community/gitsmartd/metrics"
	"github.com/nanogit-community/gitsmartd/object"
	"github.com/nanogit-community/gitsmartd/pktline"
	"github.com/nanogit-community/gitsmartd/repo"
)

// Server dispatches the Smart HTTP routes against repositories opened
// through a shared Cache.
type Server struct {
	cfg     *config.Config
	cache   *repo.Cache
	metrics *metrics.Metrics
}

// New builds a Server. m may be nil to run without instrumentation.
func New(cfg *config.Config, cache *repo.Cache, m *metrics.Metrics) *Server {
	return &Server{cfg: cfg, cache: cache, metrics: m}
}

// Handler returns the http.Handler serving every route this server knows.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveHTTP)
}

type operation string

const (
	opInfoRefs     operation = "info-refs"
	opUploadPack   operation = "upload-pack"
	opReceivePack  operation = "receive-pack"
	opUnrecognised operation = "unrecognised"
)

// classify maps a request onto one of the three known operations and the
// path prefix before the operation's fixed suffix, which is the candidate
// repository name.
func classify(method, path string) (operation, string) {
	switch {
	case method == http.MethodGet && strings.HasSuffix(path, "/info/refs"):
		return opInfoRefs, strings.TrimSuffix(path, "/info/refs")
	case method == http.MethodPost && strings.HasSuffix(path, "/git-upload-pack"):
		return opUploadPack, strings.TrimSuffix(path, "/git-upload-pack")
	case method == http.MethodPost && strings.HasSuffix(path, "/git-receive-pack"):
		return opReceivePack, strings.TrimSuffix(path, "/git-receive-pack")
	default:
		return opUnrecognised, ""
	}
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := log.FromContext(r.Context())
	if logger == nil {
		logger = log.Noop{}
	}

	op, repoPath := classify(r.Method, r.URL.Path)
	if op == opUnrecognised {
		s.fail(w, logger, "", opUnrecognised, httperr.NotFound("unsupported path %q", r.URL.Path))
		return
	}
	repoPath = strings.Trim(repoPath, "/")

	ctx := withCandidateName(r.Context(), repoPath)
	r = r.WithContext(ctx)

	name, dir, ok, err := ResolveRepositoryPath(ctx, s.cfg)
	if err != nil {
		s.fail(w, logger, name, op, httperr.Internal("resolving repository: %v", err))
		return
	}
	if !ok {
		for _, stale := range candidateDirs(s.cfg, name) {
			s.cache.Evict(stale)
		}
		s.fail(w, logger, name, op, httperr.NotFound("repository %q not found", repoPath))
		return
	}

	access := config.AccessRead
	if op == opReceivePack {
		access = config.AccessWrite
	}
	authorized, err := s.cfg.Authorize(ctx, name, access)
	if err != nil {
		s.fail(w, logger, name, op, httperr.Internal("authorizing: %v", err))
		return
	}
	if !authorized {
		s.fail(w, logger, name, op, httperr.Forbidden("access to %q denied", name))
		return
	}

	store, err := s.cache.GetOrOpen(dir)
	if err != nil {
		s.fail(w, logger, name, op, httperr.Internal("opening repository %q: %v", name, err))
		return
	}
	store.InvalidateCaches()

	if s.metrics != nil {
		s.metrics.RequestsTotal.WithLabelValues(name, string(op)).Inc()
		defer func() {
			s.metrics.OperationDuration.WithLabelValues(name, string(op)).Observe(time.Since(start).Seconds())
		}()
	}

	switch op {
	case opInfoRefs:
		s.handleInfoRefs(w, r, logger, store, name)
	case opUploadPack:
		s.handleUploadPack(w, r, logger, store, name)
	case opReceivePack:
		s.handleReceivePack(w, r, logger, store, name)
	}
}

func (s *Server) handleInfoRefs(w http.ResponseWriter, r *http.Request, logger log.Logger, store repo.Store, name string) {
	service := r.URL.Query().Get("service")
	if service != "git-upload-pack" && service != "git-receive-pack" {
		s.fail(w, logger, name, opInfoRefs, httperr.BadRequest("unsupported service %q", service))
		return
	}
	if service == "git-upload-pack" && !s.cfg.UploadPackEnabled {
		s.fail(w, logger, name, opInfoRefs, httperr.Forbidden("upload-pack is disabled"))
		return
	}
	if service == "git-receive-pack" && !s.cfg.ReceivePackEnabled {
		s.fail(w, logger, name, opInfoRefs, httperr.Forbidden("receive-pack is disabled"))
		return
	}

	w.Header().Set("Content-Type", fmt.Sprintf("application/x-%s-advertisement", service))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	if err := WriteAdvertisement(r.Context(), w, store, s.cfg, service); err != nil {
		logger.Error("writing advertisement", "repo", name, "err", err)
	}
}

func (s *Server) handleUploadPack(w http.ResponseWriter, r *http.Request, logger log.Logger, store repo.Store, name string) {
	if !s.cfg.UploadPackEnabled {
		s.fail(w, logger, name, opUploadPack, httperr.Forbidden("upload-pack is disabled"))
		return
	}

	pr := pktline.NewReader(r.Body)
	wants, err := ParseUploadPackRequest(pr, store.HashWidthBytes())
	if err != nil {
		s.fail(w, logger, name, opUploadPack, httperr.BadRequest("parsing upload-pack request: %v", err))
		return
	}
	if len(wants) == 0 {
		s.fail(w, logger, name, opUploadPack, httperr.BadRequest("no want lines in request"))
		return
	}

	entries, err := Closure(r.Context(), store, wants)
	if err != nil {
		s.fail(w, logger, name, opUploadPack, httperr.Internal("computing object closure: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/x-git-upload-pack-result")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	cw := &countingWriter{Writer: w}
	if err := WritePackResponse(r.Context(), cw, store.HashWidthBytes(), entries); err != nil {
		logger.Error("writing pack response", "repo", name, "err", err)
		return
	}
	if s.metrics != nil {
		s.metrics.ObjectsWrittenTotal.WithLabelValues(name).Add(float64(len(entries)))
		s.metrics.PackBytesTotal.WithLabelValues(name, "download").Add(float64(cw.n))
	}
}

func (s *Server) handleReceivePack(w http.ResponseWriter, r *http.Request, logger log.Logger, store repo.Store, name string) {
	if !s.cfg.ReceivePackEnabled {
		s.fail(w, logger, name, opReceivePack, httperr.Forbidden("receive-pack is disabled"))
		return
	}

	w.Header().Set("Content-Type", "application/x-git-receive-pack-result")
	w.Header().Set("Cache-Control", "no-cache")

	cr := &countingReader{Reader: r.Body}
	updated, ingested, err := HandleReceivePackBody(r.Context(), w, cr, store)
	if s.metrics != nil {
		s.metrics.PackBytesTotal.WithLabelValues(name, "upload").Add(float64(cr.n))
		if ingested > 0 {
			s.metrics.ObjectsWrittenTotal.WithLabelValues(name).Add(float64(ingested))
		}
	}
	if err != nil {
		// HandleReceivePackBody returns its parse, pack-read and
		// transaction errors before writing anything to w, so a clean
		// status response is still possible for those.
		s.fail(w, logger, name, opReceivePack, err)
		return
	}

	if len(updated) > 0 {
		s.logCommitTimes(r.Context(), logger, store, name, updated)

		updatedRefs := make(map[string]string, len(updated))
		for ref, h := range updated {
			updatedRefs[ref] = h.String()
		}
		if s.cfg.OnReceivePackCompleted != nil {
			go s.runCompletionHook(name, updatedRefs)
		}
	}
}

// logCommitTimes logs, at debug level, the author time of every updated ref
// that now points at a commit. Decode or lookup failures are swallowed: this
// is best-effort observability, not part of the push's success criteria.
func (s *Server) logCommitTimes(ctx context.Context, logger log.Logger, store repo.Store, name string, updated map[string]hash.Hash) {
	for ref, h := range updated {
		if h.IsZero() {
			continue
		}
		kind, data, err := store.ReadObject(ctx, h)
		if err != nil || kind != object.TypeCommit {
			continue
		}
		commit, err := object.ParseCommit(data)
		if err != nil {
			continue
		}
		when, err := commit.Author.Time()
		if err != nil {
			continue
		}
		logger.Debug("ref updated", "repo", name, "ref", ref, "commit", h.String(), "authored", when)
	}
}

// runCompletionHook invokes the configured post-push hook fire-and-forget,
// isolating the request from a panicking or slow hook implementation.
func (s *Server) runCompletionHook(name string, updatedRefs map[string]string) {
	defer func() {
		if p := recover(); p != nil {
			if s.metrics != nil {
				s.metrics.ErrorsTotal.WithLabelValues(name, string(opReceivePack), "hook-panic").Inc()
			}
		}
	}()
	s.cfg.OnReceivePackCompleted(context.Background(), name, updatedRefs)
}

func (s *Server) fail(w http.ResponseWriter, logger log.Logger, name string, op operation, err error) {
	if s.metrics != nil {
		s.metrics.ErrorsTotal.WithLabelValues(name, string(op), errKind(err)).Inc()
	}
	logger.Warn("request failed", "repo", name, "op", string(op), "err", err)

	var herr *httperr.Error
	msg := err.Error()
	if errors.As(err, &herr) {
		msg = herr.Message
	}
	http.Error(w, msg, httperr.StatusCode(err))
}

func errKind(err error) string {
	switch {
	case errors.Is(err, httperr.ErrBadRequest):
		return "bad-request"
	case errors.Is(err, httperr.ErrForbidden):
		return "forbidden"
	case errors.Is(err, httperr.ErrNotFound):
		return "not-found"
	default:
		return "internal"
	}
}

