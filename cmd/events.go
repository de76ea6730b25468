/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jjudge-oj/accounts/internal/events"
	"github.com/jjudge-oj/accounts/internal/mq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect account lifecycle events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log account events from the configured message queue until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("events tail requires MQ_BACKEND to be rabbitmq or pubsub")
		}
		defer queue.Close()

		subscriber := events.NewPublisher(queue, cfg.MQ.Channel)
		err = subscriber.Subscribe(ctx, func(_ context.Context, event events.Event) error {
			logger.Info("account event",
				zap.String("type", event.Type),
				zap.String("username", event.Username),
				zap.Int64("login_count", event.LoginCount),
				zap.Time("occurred_at", event.OccurredAt),
			)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
