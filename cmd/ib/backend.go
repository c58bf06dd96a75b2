package main

import (
	"fmt"

	"github.com/steveyegge/issueboard/internal/config"
	"github.com/steveyegge/issueboard/internal/manager"
	"github.com/steveyegge/issueboard/internal/storage/filelog"
	"github.com/steveyegge/issueboard/internal/telemetry"
	"github.com/steveyegge/issueboard/internal/tracker"
)

// manager opens the configured backend once per invocation.
func (c *cli) manager() (*manager.Manager, error) {
	if c.mgr != nil {
		return c.mgr, nil
	}

	name := config.GetString("backend")
	if name == filelog.BackendName {
		config.Set("local.board", c.boardDir())
		if dir := config.GetString("local.agents_dir"); dir != "" {
			config.Set("local.agents_dir", config.ResolvePath(dir))
		}
	}

	backend, err := tracker.New(name, tracker.NewConfig(name, config.Source{}))
	if err != nil {
		return nil, fmt.Errorf("opening %s backend: %w", name, err)
	}
	c.logger.Debug("backend opened", "backend", name)

	c.mgr = manager.New(telemetry.WrapBackend(backend),
		manager.WithLogger(c.logger),
		manager.WithTimeout(config.GetDuration("timeout")),
	)
	return c.mgr, nil
}

// boardDir is the absolute local board directory.
func (c *cli) boardDir() string {
	return config.ResolvePath(config.GetString("local.board"))
}
