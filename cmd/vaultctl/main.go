package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/alarmlock/internal/client/cli"
	"github.com/dmitrijs2005/alarmlock/internal/client/client"
	"github.com/dmitrijs2005/alarmlock/internal/client/config"
	"github.com/dmitrijs2005/alarmlock/internal/client/repositories/receipts"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, args, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	c, err := client.NewGRPCClient(cfg.ServerEndpointAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		return 1
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var journal receipts.Repository
	if cfg.JournalPath != "" {
		repos, err := client.InitDatabase(ctx, cfg.JournalPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: journal unavailable: %v\n", err)
		} else {
			defer repos.Close()
			journal = repos.Receipts
		}
	}

	return cli.NewApp(cfg, c, journal).Run(ctx, args)
}
