/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/mangashelf/apiserver/internal/catalog"
	"github.com/mangashelf/apiserver/internal/db"
	"github.com/mangashelf/apiserver/internal/services"
	"github.com/mangashelf/apiserver/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedPages int

// seedCmd fills the manga table from the catalog's popular listing.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import popular catalog manga into the local table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedPages < 1 {
			return errors.New("--pages must be at least 1")
		}
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

		seeder := services.NewSeedService(catalog.New(cfg.Catalog, log), store.NewMangaRepository(dbConn), log)
		result, err := seeder.Seed(ctx, seedPages)
		if err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}
		log.Info("seed finished", zap.Int("upserted", result.Upserted), zap.Int("skipped", result.Skipped))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().IntVar(&seedPages, "pages", 3, "number of catalog pages to import")
}
