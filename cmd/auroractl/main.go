// Command auroractl runs the dashboard's analytics and data tools against the database
// directly, for operators and scheduled jobs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "auroractl",
	Short:         "Aurora dashboard operator tool",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("tenant", "", "tenant id every command is scoped to")
	rootCmd.AddCommand(
		analyticsCmd,
		performanceCmd,
		predictCmd,
		patternsCmd,
		qualityCmd,
		exportCmd,
		rollupCmd,
		tokenCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
