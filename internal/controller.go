package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"croupier/internal/core"
	"croupier/internal/core/data"
	"croupier/internal/core/debug"
	"croupier/internal/discovery"
	"croupier/internal/table"
)

// Controller is the main entrypoint for the server. It's responsible for
// initializing any shared resources (such as database and logging), starting
// the table server, and announcing it over the discovery broadcaster.
type Controller struct {
	Config *core.Config

	logger *logrus.Logger
	wg     sync.WaitGroup

	tableServer *frontend
	broadcaster *discovery.Broadcaster
}

// WaitGroup exposes the group tracking the controller's running servers so
// the shutdown path can wait for in-flight connections to drain.
func (c *Controller) WaitGroup() *sync.WaitGroup {
	return &c.wg
}

func (c *Controller) Start(ctx context.Context) {
	var err error
	// Set up the logger, which is shared by everything the controller starts.
	c.logger, err = core.NewLogger(c.Config)
	if err != nil {
		fmt.Printf("error initializing logger: %v\n", err)
		return
	}

	if err := c.initDatabase(); err != nil {
		c.logger.Errorf("error connecting to database: %v", err)
		return
	}
	defer data.Shutdown()

	if c.Config.Debugging.PprofEnabled {
		debug.StartPprofServer(c.logger, c.Config.Debugging.PprofPort)
	}

	c.tableServer = &frontend{
		Address: fmt.Sprintf("%s:%d", c.Config.Hostname, c.Config.Table.Port),
		Backend: &table.Server{
			Name:   "TABLE",
			Config: c.Config,
			Logger: c.logger,
		},
		Config: c.Config,
		Logger: c.logger,
	}
	if err := c.tableServer.Start(ctx, &c.wg); err != nil {
		c.logger.Errorf("error starting table server: %v", err)
		return
	}

	// The table port may be ephemeral, so the broadcaster takes whatever
	// the listener actually bound to.
	c.broadcaster = &discovery.Broadcaster{
		Config:      c.Config,
		Logger:      c.logger,
		SessionPort: c.tableServer.Port(),
	}
	if err := c.broadcaster.Start(ctx); err != nil {
		c.logger.Errorf("error starting discovery broadcaster: %v", err)
		return
	}

	c.wg.Wait()
}

func (c *Controller) initDatabase() error {
	dataSource := c.Config.Database.Filename
	if c.Config.Database.Engine == "postgres" {
		dataSource = c.Config.DatabaseURL()
	}
	return data.Initialize(
		c.Config.Database.Engine,
		dataSource,
		c.Config.Debugging.DatabaseLoggingEnabled,
	)
}
