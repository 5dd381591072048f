// Command videofeedd runs the video feed daemon: it owns the controller
// pool, feed ingestion, subscription manager, profile fetcher, publish
// pipeline, persistent cache, curation reader, and the local debug API,
// wiring them together and blocking until an OS signal requests shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/untreu2/divinefeed/internal/config"
	"github.com/untreu2/divinefeed/internal/log"
	"github.com/untreu2/divinefeed/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("videofeedd %s (%s)\n", version, commit)
		os.Exit(0)
	}

	log.Configure(log.Config{Level: "info", Service: "videofeedd", Version: version})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fc, holder, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Configure(log.Config{Level: fc.LogLevel, Service: "videofeedd", Version: version})
	logger = log.WithComponent("main")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{Enabled: false, ServiceName: "videofeedd", ServiceVersion: version})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init telemetry provider")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	profile := fc.Resolve(fc.NetworkClass)
	deps, err := wire(fc, profile, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire daemon dependencies")
	}
	defer deps.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runSubsystems(ctx, deps, logger)
	})

	g.Go(func() error {
		debugSrv := deps.debugAPI
		errCh := make(chan error, 1)
		go func() { errCh <- debugSrv.ListenAndServe() }()
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			return debugSrv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		}
	})

	if fc.MetricsAddr != "" {
		g.Go(func() error {
			return runMetricsServer(ctx, fc.MetricsAddr)
		})
	}

	if holder != nil {
		defer holder.Close()
		reloads := make(chan *config.FileConfig, 1)
		holder.Subscribe(reloads)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case reloaded := <-reloads:
					if reloaded.LogLevel == "" {
						continue
					}
					if err := log.SetLevel(reloaded.LogLevel); err != nil {
						logger.Warn().Err(err).Str("log_level", reloaded.LogLevel).Msg("ignoring invalid log_level from reloaded config")
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("daemon exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("videofeedd exiting")
}

func loadConfig(explicitPath string) (*config.FileConfig, *config.Holder, error) {
	path := explicitPath
	if path == "" {
		if env := os.Getenv("VIDEOFEEDD_CONFIG"); env != "" {
			path = env
		}
	}
	if path == "" {
		return &config.FileConfig{NetworkClass: config.NetworkWiFi}, nil, nil
	}
	fc, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	holder, err := config.NewHolder(fc, filepath.Clean(path))
	if err != nil {
		return nil, nil, err
	}
	return fc, holder, nil
}

func runMetricsServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
