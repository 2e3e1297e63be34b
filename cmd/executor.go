package cmd

import (
	"fmt"

	"github.com/named-data/ndnd/std/engine"
	"github.com/named-data/ndnd/std/ndn"

	"github.com/named-data/nlsr/config"
	"github.com/named-data/nlsr/router"
)

type Executor struct {
	engine ndn.Engine
	router *router.Router
}

func NewExecutor(c *config.Config) (*Executor, error) {
	exe := new(Executor)

	// Engine attached to the local forwarder
	exe.engine = engine.NewBasicEngine(engine.NewDefaultFace())

	var err error
	exe.router, err = router.NewRouter(c, exe.engine)
	if err != nil {
		return nil, fmt.Errorf("failed to create nlsr router: %w", err)
	}

	return exe, nil
}

func (exe *Executor) Start() error {
	if err := exe.engine.Start(); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer exe.engine.Stop()

	return exe.router.Start() // blocks until Stop
}

func (exe *Executor) Stop() {
	exe.router.Stop()
}

func (exe *Executor) Router() *router.Router {
	return exe.router
}
