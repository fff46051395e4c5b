// Command discrete enumerates the discrete choice points of CUE models.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/discrete/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return
	}
	// Command output is already on stdout; the error goes to stderr.
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	stop()
	os.Exit(cli.GetExitCode(err))
}
