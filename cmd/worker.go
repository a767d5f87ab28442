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

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/taskboard/apiserver/config"
	"github.com/taskboard/apiserver/internal/db"
	"github.com/taskboard/apiserver/internal/mq"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// workerCmd represents the worker command. It consumes bus events and
// materializes notification rows.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Starts the notification worker",
	Long: `Starts the notification worker. It subscribes to the event
stream and writes a notification inbox row for each event. Usage:

	taskboard worker
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		backend, err := mq.New(ctx, cfg.MQ)
		if err != nil {
			logrus.WithError(err).Fatal("failed to connect event bus")
		}
		bus := mq.NewBus(backend, cfg.MQ.Stream)
		defer bus.Close()

		dbConn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			logrus.WithError(err).Fatal("failed to connect database")
		}
		defer dbConn.Close()

		notifications := services.NewNotificationService(store.NewNotificationRepository(dbConn))

		logrus.WithFields(logrus.Fields{
			"provider": cfg.MQ.Provider,
			"stream":   cfg.MQ.Stream,
		}).Info("notification worker consuming")

		err = bus.Consume(ctx, func(ctx context.Context, ev types.Event) error {
			return notifications.HandleEvent(ctx, ev)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logrus.WithError(err).Fatal("worker stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
