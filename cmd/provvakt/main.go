package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/efredriksson/provvakt/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "provvakt",
		Short: "provvakt watches Trafikverket for newly opened exam slots",
		Long: `provvakt continuously polls the Trafikverket booking service for newly
opened driving and theory exam slots across configured locations, keeps the
session cookies alive without human intervention, and reports every change
against the locally persisted snapshot.`,
	}

	rootCmd.AddCommand(cli.MonitorCmd())
	rootCmd.AddCommand(cli.SlotsCmd())
	rootCmd.AddCommand(cli.SessionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
