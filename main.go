// entry point of the application
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"reelforge/internal/binmanager"
	"reelforge/internal/config"
	"reelforge/internal/consts"
	"reelforge/internal/extractor"
	"reelforge/internal/httpapi"
	"reelforge/internal/metadata"
	"reelforge/internal/observability"
	"reelforge/internal/orchestrator"
	"reelforge/internal/progress"
	"reelforge/internal/proxymgr"
	"reelforge/internal/settingsstore"
	"reelforge/internal/sizeestimate"
	"reelforge/internal/urlsafety"
	httpserver "reelforge/pkg/http/server"
	"reelforge/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		slog.Error("config new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Options{
		AddSource: true,
		Level:     cfg.App.LogLevel,
	})
	if err != nil {
		slog.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	metrics := observability.New()

	binMgr := binmanager.New(log, binmanager.Config{
		UseSystemBinaries: cfg.BinManager.UseSystemBinaries,
		BinsDir:           cfg.BinManager.BinsDir,
		URLs: binmanager.URLs{
			ExtractorLinuxAMD64: cfg.BinManager.ExtractorLinuxAMD64,
			ExtractorLinuxARM64: cfg.BinManager.ExtractorLinuxARM64,
			FFmpegLinuxAMD64:    cfg.BinManager.FFmpegLinuxAMD64,
			FFmpegLinuxARM64:    cfg.BinManager.FFmpegLinuxARM64,
		},
	})

	log.InfoContext(ctx, "checking if extractor and ffmpeg are installed. it may take some time...")
	binMgr.Start(ctx)

	var proxySource extractor.ProxySource

	var proxyMgr *proxymgr.Manager

	if len(cfg.Proxy.Proxies) > 0 {
		proxyMgr = proxymgr.New(log, proxymgr.Config{
			Proxies:             cfg.Proxy.Proxies,
			MaxFailures:         cfg.Proxy.MaxFailures,
			FailureBackoff:      cfg.Proxy.FailureBackoff,
			HealthCheckInterval: cfg.Proxy.HealthCheckInterval,
		})
		proxyMgr.SetMetrics(metrics)
		go proxyMgr.StartHealthChecker(ctx)

		proxySource = proxyMgr

		log.InfoContext(ctx, "proxy manager initialized", slog.Int("proxy_count", proxyMgr.ProxyCount()))
	}

	extractorBin := binMgr.Path(binmanager.BinaryExtractor)

	registry := progress.New()
	driver := extractor.New(log, extractorBin, proxySource)
	driver.SetMetrics(metrics)
	orch := orchestrator.New(log, registry, driver)
	orch.SetMetrics(metrics)

	go reportSystemMetrics(ctx, metrics, registry)

	deps := httpapi.Deps{
		Orchestrator: orch,
		Estimator:    sizeestimate.New(log, extractorBin),
		Fetcher:      metadata.New(log, extractorBin),
		Checker:      urlsafety.New(cfg.URLSafety.Hosts),
		Settings:     settingsstore.New(cfg.Dir.SettingsFile),
		Metrics:      metrics,
		Proxies:      proxyMgr,
		SPADir:       cfg.Dir.SPADir,
	}

	router := httpapi.New(log, deps)

	httpSrv := httpserver.New(router, httpserver.Options{
		Addr:            listenAddr(cfg.HTTP.Port),
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})

	log.InfoContext(ctx, "reelforge started", slog.String("port", cfg.HTTP.Port))

	<-ctx.Done()

	if err := httpSrv.Shutdown(); err != nil {
		log.Error(err.Error())
	}

	log.InfoContext(ctx, "reelforge shut down gracefully")
}

// listenAddr turns a bare port (as PORT is conventionally set) into a
// listen address, passing an already-qualified address through as-is.
func listenAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}

	return ":" + port
}

// reportSystemMetrics periodically samples the goroutine count and the
// number of jobs the Progress Accountant is tracking, until ctx is done.
func reportSystemMetrics(ctx context.Context, metrics *observability.Metrics, registry progress.Registry) {
	ticker := time.NewTicker(consts.SystemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetGoroutines(runtime.NumGoroutine())
			metrics.SetActiveJobs(len(registry.ActiveJobIDs()))
		}
	}
}
