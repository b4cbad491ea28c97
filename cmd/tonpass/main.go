package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tonpass-inc/tonpass/internal/interfaces/cli/migrate"
	"github.com/tonpass-inc/tonpass/internal/interfaces/cli/worker"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tonpass",
		Short: "TONPass - payment reconciliation and access activation",
		Long:  `TONPass reconciles on-ledger escrow payments against pending entitlements and activates access on the messenger gate.`,
	}

	rootCmd.AddCommand(
		worker.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
