// Command gitsmartd serves Git's Smart HTTP transport directly against bare
// repositories on disk, with no external git process involved.
package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nanogit-community/gitsmartd/config"
	"github.com/nanogit-community/gitsmartd/log"
	"github.com/nanogit-community/gitsmartd/metrics"
	"github.com/nanogit-community/gitsmartd/repo"
	"github.com/nanogit-community/gitsmartd/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("config error: %v", err)
	}

	logger, err := log.New(cfg.LogLevel)
	if err != nil {
		stdlog.Fatalf("logger init: %v", err)
	}

	cache := repo.NewCache(20)
	metricsRegistry := metrics.New(prometheus.DefaultRegisterer)
	srv := server.New(cfg, cache, metricsRegistry)

	mux := http.NewServeMux()
	mux.Handle(cfg.HealthPath, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))
	mux.Handle(cfg.MetricsPath, promhttp.Handler())
	mux.Handle("/", withLogger(logger, srv.Handler()))

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "repository_root", cfg.RepositoryRoot)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "err", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}

// withLogger attaches logger to every request's context so handlers and the
// components they call can log through log.FromContext.
func withLogger(logger log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(log.ToContext(r.Context(), logger)))
	})
}
