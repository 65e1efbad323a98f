// cmd/massa-osd/main.go
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/camera"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/config"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/events"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/httpapi"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/logging"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/metrics"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/osd"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/poller"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/telemetry"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/transport"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/writer"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: massa-osd <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	bus := events.NewBus()

	logger, closeLog := logging.Init(logging.Options{
		Dir:    cfg.Log.Dir,
		File:   cfg.Log.File,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	}, bus)
	defer closeLog()

	m := metrics.New()

	// --------------------
	// Build fleets + engines
	// --------------------

	scales, err := poller.BuildRegistry(cfg)
	if err != nil {
		fatal(logger, "scale registry build failed", err)
	}

	scaleEngine, err := poller.Build(cfg, scales, poller.Deps{
		Dialer:   transport.Default(),
		Bus:      bus,
		Logger:   logger,
		Observer: m,
	})
	if err != nil {
		fatal(logger, "poller build failed", err)
	}

	cameras, err := camera.BuildRegistry(cfg, scales)
	if err != nil {
		fatal(logger, "camera registry build failed", err)
	}

	osdCfg := osd.ConfigFrom(cfg.Engine)
	osdEngine, err := osd.NewEngine(cameras, osdCfg, osd.Deps{
		Scales:   scales,
		Bus:      bus,
		Logger:   logger,
		Observer: m,
	})
	if err != nil {
		fatal(logger, "osd engine build failed", err)
	}

	// --------------------
	// Optional sinks
	// --------------------

	mirror, closeMirror, err := writer.BuildMirror(cfg, scales, bus, logger)
	if err != nil {
		fatal(logger, "status mirror build failed", err)
	}
	defer closeMirror()

	pubs, err := telemetry.BuildPublishers(cfg.Telemetry)
	if err != nil {
		fatal(logger, "telemetry build failed", err)
	}

	var api *httpapi.Server
	if cfg.HTTP.Listen != "" {
		api, err = httpapi.New(httpapi.Deps{
			Scales:  scales,
			Cameras: cameras,
			Status:  osdEngine,
			Bus:     bus,
			Metrics: m,
			Screens: httpapi.ISAPIScreens,
			Render:  osdCfg.Render,
			Logger:  logger,
		})
		if err != nil {
			fatal(logger, "http api build failed", err)
		}
	}

	// --------------------
	// Run until SIGINT / SIGTERM
	// --------------------

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	background := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil {
				logger.Error("background task failed", "task", name, "error", err)
			}
		}()
	}

	if mirror != nil {
		background("status-mirror", mirror.Run)
	}
	if len(pubs) > 0 {
		background("telemetry", telemetry.NewForwarder(bus, logger, pubs...).Run)
	}
	if api != nil {
		background("http", func(ctx context.Context) error { return api.Run(ctx, cfg.HTTP.Listen) })
	}

	scaleEngine.Start(ctx)
	osdEngine.Start(ctx)

	logger.Info("massa-osd started",
		"scales", scales.Len(),
		"cameras", len(cameras.List()),
		"polling", scaleEngine.Running(),
		"overlays", osdEngine.Running(),
	)

	<-ctx.Done()
	logger.Info("shutting down")

	// --------------------
	// Graceful shutdown
	// --------------------

	scaleEngine.StopAll()
	osdEngine.StopAll()
	bus.Close()
	wg.Wait()

	logger.Info("stopped")
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
