package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imagepress/imagepress/internal/app"
)

func newDownloadCmd(configPath *string) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "download ID",
		Short: "Write the compressed artifact of an image to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), *configPath, func(a *app.App) error {
				dl, err := a.Retrieval.GetDownload(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				path := outPath
				if path == "" {
					path = filepath.Base(dl.Filename)
				}
				if err := os.WriteFile(path, dl.Bytes, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", path, humanBytes(int64(len(dl.Bytes))))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (default: compressed-<original name> in the current directory)")
	return cmd
}
