package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/imagepress/imagepress/internal/app"
	"github.com/imagepress/imagepress/internal/domain"
)

func newIngestCmd(configPath *string) *cobra.Command {
	var outputFmt string

	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Compress and store one or more image files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), *configPath, func(a *app.App) error {
				var (
					recs   []domain.ImageRecord
					failed int
				)
				for _, path := range args {
					data, err := os.ReadFile(path)
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
						failed++
						continue
					}
					rec, err := a.Ingestion.Ingest(cmd.Context(), data, filepath.Base(path))
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
						failed++
						continue
					}
					recs = append(recs, rec)
				}

				if err := printRecords(cmd, outputFmt, recs); err != nil {
					return err
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d files failed", failed, len(args))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")
	return cmd
}

func printRecords(cmd *cobra.Command, outputFmt string, recs []domain.ImageRecord) error {
	if recs == nil {
		recs = []domain.ImageRecord{}
	}
	switch outputFmt {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	case "text":
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tORIGINAL\tCOMPRESSED\tSAVED\tCREATED")
		for _, r := range recs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f%%\t%s\n",
				r.ID, r.OriginalName, humanBytes(r.OriginalSize), humanBytes(r.CompressedSize),
				r.CompressionRatio, r.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", outputFmt)
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
