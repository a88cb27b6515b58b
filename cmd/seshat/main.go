package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/seshat/internal/config"
	logpkg "github.com/kailas-cloud/seshat/internal/logger"
	"github.com/kailas-cloud/seshat/internal/metrics"
	"github.com/kailas-cloud/seshat/internal/version"
)

const usage = `Usage:
  seshat [serve]                      run the HTTP server
  seshat reindex [-drop] [namespace]  rebuild the search index from the database
  seshat -version                     print the version
`

func main() {
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	metrics.RegisterSearchMetrics()

	cmd, args := "serve", flag.Args()
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		err = serve(cfg, env, logger)
	case "reindex":
		err = reindex(cfg, args, logger)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal("Command failed", zap.String("command", cmd), zap.Error(err))
	}
}

func serve(cfg config.Config, env string, logger *zap.Logger) error {
	logger.Info("Starting seshat API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_path", cfg.Database.Path),
		zap.String("search_driver", cfg.Search.Driver),
	)

	ctx := context.Background()
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// reindex rebuilds the index of one namespace, or of all of them.
func reindex(cfg config.Config, args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	drop := fs.Bool("drop", false, "recreate the index empty before rebuilding")
	if err := fs.Parse(args); err != nil {
		return err
	}
	namespace := fs.Arg(0)

	if !cfg.Search.Enabled() {
		return errors.New("search is disabled, set search.driver")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	counts, err := a.search.Reindex(ctx, namespace, *drop)
	for ns, n := range counts {
		logger.Info("Reindexed", zap.String("namespace", ns), zap.Int("documents", n))
	}
	if err != nil {
		return err
	}
	logger.Info("Reindex finished", zap.Duration("took", time.Since(start)))
	return nil
}
