// Package main is the entry point for the weewx-zabbix daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/HoracioDos/weewx-zabbix/internal/config"
	"github.com/HoracioDos/weewx-zabbix/internal/engine"
	"github.com/HoracioDos/weewx-zabbix/internal/logger"
	"github.com/HoracioDos/weewx-zabbix/internal/service"
	"github.com/HoracioDos/weewx-zabbix/internal/source"
	"github.com/HoracioDos/weewx-zabbix/internal/zabbix"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const startupErrorLogDir = "log/weewx-zabbix"

func main() {
	var (
		configPath  = flag.String("config", "conf/weewx-zabbix/weewx-zabbix.json", "Path to main configuration file")
		loggingPath = flag.String("logging", "conf/weewx-zabbix/Logging.json", "Path to logging configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("weewx-zabbix %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, lc, err := config.LoadAll(*configPath, *loggingPath)
	if err != nil {
		service.WriteStartupErrorFile(startupErrorLogDir, err)
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(*lc); err != nil {
		service.WriteStartupErrorFile(startupErrorLogDir, err)
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log := logger.WithComponent("main")
	log.Info().
		Str("version", version).
		Str("config", *configPath).
		Str("logging", *loggingPath).
		Msg("Starting weewx-zabbix")

	svc := service.New(func(ctx context.Context) error {
		return run(ctx, cfg, *loggingPath)
	})

	if err := svc.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("Service exited with error")
		os.Exit(1)
	}

	log.Info().Msg("weewx-zabbix stopped")
}

// run wires the engine, the zabbix service and the packet source, then
// feeds packets until ctx is cancelled or the source runs dry.
func run(ctx context.Context, cfg *config.Config, loggingPath string) error {
	log := logger.WithComponent("main")

	eng := engine.New()
	zabbix.New(eng, cfg.Zabbix)
	if eng.Bound(engine.NewLoopPacket) == 0 {
		log.Warn().Msg("Zabbix forwarding is disabled; packets will be read and discarded")
	}

	src, err := source.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing source")
		}
	}()

	var watcherMu sync.Mutex
	loggingWatcher, err := config.NewLoggingWatcher(loggingPath, func(newLC *logger.Config) {
		watcherMu.Lock()
		defer watcherMu.Unlock()

		if err := logger.Init(*newLC); err != nil {
			log.Error().Err(err).Msg("Failed to update logging configuration")
			return
		}
		mainLog := logger.WithComponent("main")
		mainLog.Info().Str("level", newLC.Level).Msg("Logging configuration updated")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create logging watcher, hot reload disabled")
	} else if err := loggingWatcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start logging watcher")
	} else {
		defer loggingWatcher.Stop()
	}

	return src.Run(ctx, eng)
}
