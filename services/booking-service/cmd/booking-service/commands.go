package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := runtime.NewLogger(config.String("SERVICE_NAME", "booking-service"))
			ctx, stop := runtime.SignalContext()
			defer stop()

			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := storage.Migrate(ctx, pool, logger); err != nil {
				logger.Error("migration failed", "err", err)
				return err
			}
			logger.Info("migrations applied")
			return nil
		},
	}
}

func processRemindersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process-reminders",
		Short: "Dispatch one batch of due reminders and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			service := config.String("SERVICE_NAME", "booking-service")
			logger := runtime.NewLogger(service)
			ctx, stop := runtime.SignalContext()
			defer stop()
			defer setupTracing(ctx, service, logger)()

			a, err := newApp(ctx, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.reminders.Process(ctx)
			if err != nil {
				logger.Error("reminder batch failed", "err", err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent=%d failed=%d cancelled=%d errors=%d\n", res.Sent, res.Failed, res.Cancelled, res.Errors)
			if res.Errors > 0 {
				return fmt.Errorf("%d reminders could not be stored", res.Errors)
			}
			return nil
		},
	}
}
