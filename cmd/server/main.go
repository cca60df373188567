// Command server runs the alarmlock custody service: the gRPC API for
// signed-in owners and the read-only HTTP API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/alarmlock/internal/server"
	"github.com/dmitrijs2005/alarmlock/internal/server/config"
)

func main() {
	ctx := context.Background()
	app, err := server.NewApp(ctx, config.LoadConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	app.Run(ctx)
}
