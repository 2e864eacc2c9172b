/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/playground/engine"
	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/testbed"
)

func main() {
	configPath := flag.String("config", "playground.toml", "path to the engine configuration")
	headless := flag.Bool("headless", false, "run without a window on the headless renderer")
	flag.Parse()

	cfg, err := engine.LoadConfig(*configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		core.LogWarn("config %s not found, using defaults", *configPath)
		cfg = engine.DefaultConfig()
	case err != nil:
		core.LogFatal(err.Error())
	}
	if *headless {
		cfg.Application.Headless = true
	}

	e, err := engine.New(cfg, testbed.NewGame())
	if err != nil {
		core.LogFatal(err.Error())
	}

	// signal context to capture system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal(err.Error())
	}

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if runErr != nil {
		core.LogFatal(runErr.Error())
	}
}
