/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/mangashelf/apiserver/internal/db"
	"github.com/mangashelf/apiserver/internal/events"
	"github.com/mangashelf/apiserver/internal/mq"
	"github.com/mangashelf/apiserver/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// workerCmd consumes library events and keeps profile counters current.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume library events and update reading stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx := cmd.Context()
		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		broker, err := mq.FromConfig(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		defer broker.Close()

		channel := events.Channel(events.TypeLibraryEntrySaved)
		log.Info("worker subscribed", zap.String("channel", channel), zap.String("backend", cfg.MQ.Backend))

		handler := events.StatsHandler(store.NewUserRepository(dbConn), log)
		if err := broker.Subscribe(ctx, channel, handler); err != nil {
			if errors.Is(err, mq.ErrNoBroker) {
				return fmt.Errorf("worker needs MQ_BACKEND set to rabbitmq or pubsub: %w", err)
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("subscribe %s: %w", channel, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
