/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mangashelf/apiserver/config"
	"github.com/mangashelf/apiserver/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mangashelf",
	Short: "Manga tracking backend",
	Long: `mangashelf serves accounts, reading lists and catalog browsing
for the manga tracker. Usage:

	mangashelf migrate up
	mangashelf seed --pages 5
	mangashelf server
	mangashelf worker
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadRuntime reads the environment and builds the process logger.
func loadRuntime() (config.Config, *zap.Logger, error) {
	cfg := config.LoadConfig()
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}
