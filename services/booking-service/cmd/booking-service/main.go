package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/slotbook/libs/config"
)

func main() {
	if err := config.LoadDotenv(); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}

	serve := serveCmd()
	rootCmd := &cobra.Command{
		Use:          "booking-service",
		Short:        "Consultant appointment booking service",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(processRemindersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
