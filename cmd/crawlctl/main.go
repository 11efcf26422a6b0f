// Command crawlctl is the corpusreaper crawler's entrypoint.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cmd "github.com/kestrel-labs/corpusreaper/internal/cli"
	"github.com/kestrel-labs/corpusreaper/internal/coordinator"
	"github.com/kestrel-labs/corpusreaper/internal/config"
)

func main() {
	cmd.SetRunFunc(run)
	cmd.Execute()
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := coordinator.Run(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("crawl finished: %d pages fetched\n", result.PagesFetched)
	return nil
}
