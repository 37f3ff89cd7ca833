// Package config holds the Process Supervisor's typed configuration
// and its cross-field validation. Loading a config file from disk is
// an external collaborator's job; this package only defines the shape
// and the rules a loaded value must satisfy before anything is spawned.
package config

import "fmt"

// DashboardConfig controls whether and how the dashboard child is
// spawned.
type DashboardConfig struct {
	Enabled      bool   `json:"enabled"`
	PollInterval int    `json:"pollInterval"` // ms, validated range [100,5000]
	DBPath       string `json:"dbPath"`
}

// AgentsConfig controls how many agent children are spawned and their
// restart policy.
type AgentsConfig struct {
	Count        int    `json:"count"` // validated range [1,50]
	DefaultRole  string `json:"defaultRole"`
	QuietMode    bool   `json:"quietMode"`
	AutoRestart  bool   `json:"autoRestart"`
	RestartDelay int    `json:"restartDelay"` // ms, validated >= 1000
	MaxRestarts  int    `json:"maxRestarts"`  // validated range [0,10]
}

// WorktreeConfig names one agent's working directory assignment.
type WorktreeConfig struct {
	Path string `json:"path"`
	Role string `json:"role,omitempty"`
}

// TaskConfig seeds an initial task at launch.
type TaskConfig struct {
	Title        string   `json:"title"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// ShutdownConfig controls the graceful-shutdown window.
type ShutdownConfig struct {
	GracePeriod int `json:"gracePeriod"` // ms, validated >= 1000
	ForceAfter  int `json:"forceAfter"`  // ms, validated >= 1000 and > GracePeriod
}

// Config is the Supervisor's full validated configuration.
type Config struct {
	Dashboard DashboardConfig  `json:"dashboard"`
	Agents    AgentsConfig     `json:"agents"`
	Worktrees []WorktreeConfig `json:"worktrees,omitempty"`
	Tasks     []TaskConfig     `json:"tasks,omitempty"`
	Shutdown  ShutdownConfig   `json:"shutdown"`
}

// Default returns the configuration the spec names as defaults. It is
// always valid.
func Default() Config {
	return Config{
		Dashboard: DashboardConfig{
			Enabled:      true,
			PollInterval: 500,
			DBPath:       ".asf/swarm_state.db",
		},
		Agents: AgentsConfig{
			Count:        4,
			DefaultRole:  "developer",
			QuietMode:    true,
			AutoRestart:  false,
			RestartDelay: 5000,
			MaxRestarts:  3,
		},
		Shutdown: ShutdownConfig{
			GracePeriod: 10000,
			ForceAfter:  15000,
		},
	}
}

// Validate applies the cross-field rules from the supervisor's
// configuration contract. An empty/zero Config is NOT automatically
// valid — callers that want defaults should start from Default() and
// apply overrides, then call Validate.
func (c Config) Validate() error {
	if c.Dashboard.PollInterval < 100 || c.Dashboard.PollInterval > 5000 {
		return fmt.Errorf("%w: dashboard.pollInterval must be within [100,5000], got %d", ErrConfigInvalid, c.Dashboard.PollInterval)
	}
	if c.Agents.Count < 1 || c.Agents.Count > 50 {
		return fmt.Errorf("%w: agents.count must be within [1,50], got %d", ErrConfigInvalid, c.Agents.Count)
	}
	if c.Agents.RestartDelay < 1000 {
		return fmt.Errorf("%w: agents.restartDelay must be >= 1000, got %d", ErrConfigInvalid, c.Agents.RestartDelay)
	}
	if c.Agents.MaxRestarts < 0 || c.Agents.MaxRestarts > 10 {
		return fmt.Errorf("%w: agents.maxRestarts must be within [0,10], got %d", ErrConfigInvalid, c.Agents.MaxRestarts)
	}
	if c.Shutdown.GracePeriod < 1000 {
		return fmt.Errorf("%w: shutdown.gracePeriod must be >= 1000, got %d", ErrConfigInvalid, c.Shutdown.GracePeriod)
	}
	if c.Shutdown.ForceAfter < 1000 {
		return fmt.Errorf("%w: shutdown.forceAfter must be >= 1000, got %d", ErrConfigInvalid, c.Shutdown.ForceAfter)
	}
	if c.Shutdown.ForceAfter <= c.Shutdown.GracePeriod {
		return fmt.Errorf("%w: shutdown.forceAfter (%d) must be > shutdown.gracePeriod (%d)", ErrConfigInvalid, c.Shutdown.ForceAfter, c.Shutdown.GracePeriod)
	}
	return nil
}
