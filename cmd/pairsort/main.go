// Command pairsort sorts files by asking which of two you prefer.
//
// Usage:
//
//	pairsort sort [paths...]     start or resume a sort
//	pairsort status [paths...]   show saved progress
//	pairsort order [paths...]    print the finished order (--rename to apply it)
//	pairsort reset [paths...]    discard saved progress
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/pairsort/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
