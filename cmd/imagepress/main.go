// Package main provides the imagepress CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imagepress/imagepress/internal/app"
	"github.com/imagepress/imagepress/pkg/config"
	"github.com/imagepress/imagepress/pkg/logger"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "imagepress",
		Short: "Compress images and inspect the image store",
		Long: `imagepress ingests images through the same pipeline as imagepressd,
lists stored images, reports compression statistics and downloads compressed
artifacts.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: nearest .imagepress/config.yaml)")

	rootCmd.AddCommand(
		newIngestCmd(&configPath),
		newListCmd(&configPath),
		newStatsCmd(&configPath),
		newDownloadCmd(&configPath),
		newMigrateCmd(&configPath),
	)
	return rootCmd
}

func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Resolve(path)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Level, logger.FormatConsole)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// withApp builds the app for one command and tears it down afterwards.
func withApp(ctx context.Context, configPath string, fn func(a *app.App) error) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
