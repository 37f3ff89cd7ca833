// Package main is the entry point for the launcher: it loads the fleet
// configuration, wires the Process Supervisor, and blocks until the
// stop sequence (triggered by SIGINT/SIGTERM/SIGHUP or a spawn
// failure) has completed.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/asf/whisperdash/internal/config"
	"github.com/asf/whisperdash/internal/events"
	"github.com/asf/whisperdash/internal/supervisor"
	"github.com/asf/whisperdash/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to a JSON fleet configuration file; defaults are used when empty")
	pidPath := flag.String("pid-file", ".asf/launcher.pid", "Single-instance PID-file location")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log := logger.New(logger.Config{Level: *logLevel, Pretty: true})

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	bus := events.NewBus(log)

	done := make(chan struct{})
	var once sync.Once
	bus.Subscribe(events.Shutdown, func(*events.Event) {
		once.Do(func() { close(done) })
	})

	sup, err := supervisor.New(cfg, *pidPath, bus, log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := sup.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start fleet")
	}
	log.Info().Int("agents", cfg.Agents.Count).Msg("fleet started")

	<-done
	log.Info().Msg("fleet stopped")
}

// loadConfig reads a JSON fleet configuration from path, applying its
// fields over config.Default() so an omitted section keeps its
// documented default rather than becoming zero-valued. An empty path
// returns the defaults unchanged. Loading and parsing a config file is
// this binary's job alone; internal/config only defines the validated
// shape.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return config.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
