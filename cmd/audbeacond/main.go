// SPDX-License-Identifier: EPL-2.0

// audbeacond: spatial audio beacon daemon
// Mixes directional and speech beacons to the default audio device and
// exposes one engine over HTTP and WebSocket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ik5/audbeacon"
	"github.com/ik5/audbeacon/assets"
	"github.com/ik5/audbeacon/beacon"
	"github.com/ik5/audbeacon/internal/config"
	"github.com/ik5/audbeacon/internal/log"
	"github.com/ik5/audbeacon/internal/server"
	"github.com/ik5/audbeacon/spatial"
)

var (
	version     = "0.1.0"
	configPath  = flag.String("config", "/etc/audbeacon/config.yaml", "config file path")
	showVersion = flag.Bool("version", false, "print version and exit")
	debug       = flag.Bool("debug", false, "enable debug logging")
	writeAssets = flag.Bool("write-assets", false, "write the built-in beacon tones to the asset directory and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("audbeacond %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config from %s: %v\n", *configPath, err)
		cfg = config.Default()
	}

	if *debug {
		cfg.Logging.Level = "debug"
	}

	logger := log.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if *writeAssets {
		if err := writeDefaultAssets(cfg, logger); err != nil {
			logger.Error("writing assets failed", "error", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("audbeacond failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting audbeacond",
		"version", version,
		"config", *configPath,
		"port", cfg.Server.Port,
		"sample_rate", cfg.Engine.SampleRate,
	)

	system, err := spatial.NewSystem(cfg.Engine.SampleRate,
		spatial.WithQuality(cfg.Engine.ResampleQuality),
		spatial.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("audio system: %w", err)
	}

	output, err := spatial.NewOutput(system, cfg.Engine.OutputBuffer)
	if err != nil {
		_ = system.Close()
		return fmt.Errorf("audio output: %w", err)
	}
	defer output.Close()
	output.Start()

	runtime := audbeacon.New(
		audbeacon.WithSystemFactory(singleSystem(system)),
		audbeacon.WithLoader(newLoader(cfg, logger)),
		audbeacon.WithBeaconTypes(cfg.Beacon.Types, cfg.Beacon.Type),
		audbeacon.WithDirectionalFormat(cfg.DirectionalFormat()),
		audbeacon.WithSpeech(cfg.SpeechOptions()),
		audbeacon.WithEngineOptions(
			beacon.WithTickInterval(cfg.Engine.TickInterval),
			beacon.WithDistanceRange(cfg.Engine.MinDistance, cfg.Engine.MaxDistance),
		),
		audbeacon.WithLogger(logger),
	)
	defer func() {
		if err := runtime.Close(); err != nil {
			logger.Warn("runtime close error", "error", err)
		}
	}()

	engine, err := runtime.CreateEngine()
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server, runtime, engine, cfg.Speech.BufferBytes, logger, version)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("audbeacond ready", "engine", engine, "assets", cfg.Beacon.AssetDir)

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	// Stop in order: server -> runtime -> output
	logger.Info("shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", "error", err)
	}

	if err := output.Err(); err != nil {
		logger.Warn("audio output error", "error", err)
	}

	logger.Info("audbeacond stopped")

	return nil
}

// singleSystem hands the mixer to the first engine only. The mixer feeds
// the one output device, and a second engine would fight over its listener.
func singleSystem(system *spatial.System) audbeacon.SystemFactory {
	used := false

	return func() (beacon.AudioSystem, error) {
		if used {
			return nil, errors.New("audio system already in use by another engine")
		}
		used = true

		return system, nil
	}
}

func newLoader(cfg *config.Config, logger *slog.Logger) beacon.Loader {
	synth := assets.NewSynthLoader(nil)
	if !cfg.AssetDirExists() {
		if cfg.Beacon.AssetDir != "" {
			logger.Warn("asset directory missing, using synthesized tones", "dir", cfg.Beacon.AssetDir)
		}
		return synth
	}

	return assets.NewLoader(os.DirFS(cfg.Beacon.AssetDir),
		assets.WithFallback(synth),
		assets.WithLogger(logger),
	)
}

func writeDefaultAssets(cfg *config.Config, logger *slog.Logger) error {
	if cfg.Beacon.AssetDir == "" {
		return errors.New("beacon.asset_dir is not set")
	}

	written, err := assets.WriteDefaults(cfg.Beacon.AssetDir, cfg.Beacon.SampleRate)
	if err != nil {
		return err
	}
	logger.Info("wrote beacon assets", "dir", cfg.Beacon.AssetDir, "files", written)

	return nil
}
