package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fleetsight",
		Short: "FleetSight - fleet transaction records and feature preprocessing",
		Long: `FleetSight stores vehicles, drivers and transactions and derives
time, location, fuel, maintenance and history features from each
transaction for downstream anomaly scoring.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(preprocessCmd())
	return rootCmd
}
