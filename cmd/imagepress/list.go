package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imagepress/imagepress/internal/app"
)

func newListCmd(configPath *string) *cobra.Command {
	var outputFmt string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored images, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), *configPath, func(a *app.App) error {
				recs, err := a.Retrieval.ListImages(cmd.Context())
				if err != nil {
					return err
				}
				return printRecords(cmd, outputFmt, recs)
			})
		},
	}

	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")
	return cmd
}

func newStatsCmd(configPath *string) *cobra.Command {
	var outputFmt string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show compression statistics across all images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), *configPath, func(a *app.App) error {
				stats, err := a.Analytics.GetAnalytics(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch outputFmt {
				case "json":
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(stats)
				case "text":
					fmt.Fprintf(out, "Images:              %d\n", stats.TotalImages)
					fmt.Fprintf(out, "Original size:       %s\n", humanBytes(stats.TotalOriginalSize))
					fmt.Fprintf(out, "Compressed size:     %s\n", humanBytes(stats.TotalCompressedSize))
					fmt.Fprintf(out, "Average compression: %.2f%%\n", stats.AverageCompression)
					return nil
				default:
					return fmt.Errorf("unknown output format %q", outputFmt)
				}
			})
		},
	}

	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")
	return cmd
}
