package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arthur-debert/agentconf/internal/cli"
	"github.com/arthur-debert/agentconf/pkg/errors"
	"github.com/arthur-debert/agentconf/pkg/ui/styles"
)

func main() {
	// A cancel stops the run before the next target
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.Render("Error", fmt.Sprintf("Error: %v", err)))
		if hint := errors.Hint(err); hint != "" {
			fmt.Fprintln(os.Stderr, styles.Render("Muted", "hint: "+hint))
		}
	}
	stop()
	os.Exit(errors.ExitCode(err))
}
