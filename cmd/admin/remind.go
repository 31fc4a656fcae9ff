package main

import (
	"fmt"

	"arbitra/internal/config"
	"arbitra/internal/repositories"
	"arbitra/internal/services/notification"
	"arbitra/internal/services/reminder"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Run the stale-case reminder sweep once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			var sender notification.Sender = notification.LogSender{}
			if cfg.Email.APIURL != "" {
				sender = notification.NewHTTPSender(cfg.Email.APIURL, cfg.Email.Token, cfg.Email.Sender, cfg.Email.Timeout)
			}
			dispatcher := notification.NewDispatcher(sender, notification.DispatcherConfig{
				Workers:   cfg.Email.Workers,
				QueueSize: cfg.Email.Queue,
				Timeout:   cfg.Email.Timeout,
			})

			var sent int
			err := withDB(cmd.Context(), func(db *gorm.DB) error {
				var err error
				sent, err = reminder.NewSweeper(repositories.NewDisputeRepository(db), dispatcher).Run(cmd.Context())
				return err
			})
			// Close drains the queue before the process exits.
			if cerr := dispatcher.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "queued %d reminders\n", sent)
			return nil
		},
	}
}
