// Command intercept-proxy is an HTTP forward proxy that runs every request
// through the interception pipeline: images and media are blocked, cacheable
// responses are answered from the ephemeral or Redis tier, the rest are
// fetched upstream and cached.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/intercept-cache/pkg/cache"
	"github.com/Sternrassler/intercept-cache/pkg/config"
	"github.com/Sternrassler/intercept-cache/pkg/intercept"
	"github.com/Sternrassler/intercept-cache/pkg/logging"
	"github.com/Sternrassler/intercept-cache/pkg/upstream"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "intercept-proxy",
		Short: "Caching forward proxy for browser sessions",
		Long: `A forward proxy that intercepts every request a browser sends through it.

Images and media are blocked, responses with cache headers are kept in an
in-process tier (private responses) or in Redis (everything else), and
repeated requests are answered from cache without touching the origin.

Example:
  intercept-proxy --listen :3128 --config proxy.yaml`,
		SilenceUsage: true,
		RunE:         runProxy,
	}

	rootCmd.Flags().StringP("config", "c", "", "Path to configuration file (YAML)")
	rootCmd.Flags().String("listen", "", "Proxy listen address (overrides config)")
	rootCmd.Flags().String("admin", "", "Admin listen address for /health, /ready, /metrics (overrides config)")
	rootCmd.Flags().StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("pretty", false, "Human-readable console logs")

	return rootCmd
}

// loadConfig resolves the configuration: file and environment first, then any
// flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Server.Listen, _ = flags.GetString("listen")
	}
	if flags.Changed("admin") {
		cfg.Server.Admin, _ = flags.GetString("admin")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("pretty") {
		cfg.Log.Pretty, _ = flags.GetBool("pretty")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runProxy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logging.Setup(logging.Config{
		Level:  cfg.LogLevel(),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger(logging.ComponentProxy)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := newRedisClient(cfg.Redis)
	if err != nil {
		return err
	}
	var shared cache.SharedTier
	if redisClient != nil {
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// The pipeline degrades to ephemeral-only on each failing call.
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis not reachable at startup")
		} else {
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
		}
		shared = cache.NewRedisTier(redisClient)
	} else {
		logger.Info().Msg("Redis disabled, running ephemeral-only")
	}

	pipeline, err := newPipeline(cfg, shared)
	if err != nil {
		return err
	}

	proxy := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           newProxyHandler(pipeline, http.DefaultTransport, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	servers := []*http.Server{proxy}

	if cfg.Server.Admin != "" {
		servers = append(servers, &http.Server{
			Addr:              cfg.Server.Admin,
			Handler:           newAdminRouter(redisClient),
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Info().Str("addr", srv.Addr).Msg("Starting server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down")
	case err = <-errCh:
		logger.Error().Err(err).Msg("Server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn().Err(shutdownErr).Str("addr", srv.Addr).Msg("Shutdown incomplete")
		}
	}

	return err
}

// newRedisClient returns nil when the shared tier is disabled. Addr may be a
// plain host:port or a redis:// URL.
func newRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	if strings.HasPrefix(cfg.Addr, "redis://") || strings.HasPrefix(cfg.Addr, "rediss://") {
		opts, err := redis.ParseURL(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if cfg.Password != "" {
			opts.Password = cfg.Password
		}
		return redis.NewClient(opts), nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), nil
}

func newPipeline(cfg config.Config, shared cache.SharedTier) (*intercept.Pipeline, error) {
	fetcher, err := upstream.NewFetcher(
		upstream.WithTimeouts(cfg.Upstream.NavigationTimeout, cfg.Upstream.ResourceTimeout),
		upstream.WithMaxRedirects(cfg.Upstream.MaxRedirects),
		upstream.WithLogger(logging.NewLogger(logging.ComponentUpstream)),
	)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	logger := logging.NewLogger(logging.ComponentIntercept)
	return intercept.New(intercept.Config{
		Shared:  shared,
		Fetcher: fetcher,
		Logger:  &logger,
	})
}
