// Package main is the entry point for the dashboard process: it opens
// the Telemetry Store, wires the Store Adapter, State Store, Polling
// Driver and Renderer, then runs the bubbletea program until the user
// quits or the process receives a termination signal.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/asf/whisperdash/internal/dashboard/adapter"
	"github.com/asf/whisperdash/internal/dashboard/poll"
	"github.com/asf/whisperdash/internal/dashboard/state"
	"github.com/asf/whisperdash/internal/dashboard/ui"
	"github.com/asf/whisperdash/internal/database"
	"github.com/asf/whisperdash/internal/events"
	"github.com/asf/whisperdash/internal/telemetry"
	"github.com/asf/whisperdash/pkg/logger"
)

func main() {
	dbPath := flag.String("db-path", envOr("ASF_DB_PATH", ".asf/swarm_state.db"), "Telemetry Store database file")
	pollInterval := flag.Int("poll-interval", envIntOr("ASF_POLL_INTERVAL", 500), "Poll interval in milliseconds [250,2000]")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	// The dashboard is a human-facing terminal program; its own
	// diagnostics go to a log file rather than stdout, which bubbletea
	// owns for the life of the program.
	logFile, err := openLogFile()
	var log = logger.Silent()
	if err == nil {
		log = logger.New(logger.Config{Level: *logLevel, Output: logFile})
		defer logFile.Close()
	}

	db, err := database.New(database.Config{Path: *dbPath, Name: "swarm"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "dashboard: open store: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "dashboard: migrate store: %v\n", err)
		os.Exit(1)
	}

	store := telemetry.NewStore(db, log)
	maint := telemetry.NewMaintenance(store, log)
	if err := maint.Start(); err != nil {
		log.Warn().Err(err).Msg("maintenance sweep not started")
	}
	defer maint.Stop()

	bus := events.NewBus(log)
	stateStore := state.New(bus)
	ad := adapter.New(store, 0)

	driver, err := poll.New(poll.Config{
		PollInterval: time.Duration(*pollInterval) * time.Millisecond,
	}, ad, stateStore, bus, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dashboard: configure poller: %v\n", err)
		os.Exit(1)
	}

	model := ui.New(driver, stateStore, bus, log)
	program := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "dashboard: %v\n", err)
		driver.Stop()
		os.Exit(1)
	}
	driver.Stop()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return fallback
	}
	return n
}

func openLogFile() (*os.File, error) {
	if err := os.MkdirAll(".asf", 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(".asf/dashboard.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}
