package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/DRSN-tech/product-matcher/internal/app"
	config "github.com/DRSN-tech/product-matcher/internal/cfg"
	"github.com/DRSN-tech/product-matcher/internal/delivery/cli"
	"github.com/DRSN-tech/product-matcher/pkg/logger"
)

func main() {
	// stdout занят JSON-результатом команды
	log := logger.NewSlogLoggerWithWriter(os.Stderr, os.Getenv("LOG_LEVEL"))

	open := func(context.Context) (cli.Backend, error) {
		cfg, err := config.Load(log)
		if err != nil {
			return nil, err
		}

		application, err := app.NewApp(cfg, log)
		if err != nil {
			return nil, err
		}
		return application, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd(open).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
