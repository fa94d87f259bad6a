package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/eshaffer321/calimoto-go/pkg/calimoto"
	"github.com/spf13/cobra"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var indexes []int
	var all bool
	var dirFlag string

	cmd := &cobra.Command{
		Use:   "export <routes|tracks>",
		Short: "Export routes or tracks as GPX files",
		Long: "Export routes or tracks as GPX files. Items are selected by their " +
			"position in `calimoto list` (1 is the newest).",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"routes", "tracks"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := calimoto.ParseKind(args[0])
			if err != nil {
				return err
			}
			if !all && len(indexes) == 0 {
				return fmt.Errorf("select items with --index or use --all")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := cfg.OutputDir
			if dirFlag != "" {
				dir = dirFlag
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			return ctx.withSession(cmd.Context(), func(client *calimoto.Client) error {
				records, err := listSorted(cmd, client, kind)
				if err != nil {
					return err
				}

				selected, err := selectRecords(records, indexes, all)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(selected) == 0 {
					fmt.Fprintf(out, "No %s found\n", kind)
					return nil
				}

				failed := 0
				for _, record := range selected {
					export := calimoto.NewExportCommand(record, kind)
					path := filepath.Join(dir, export.Filename())
					if err := client.Export.ExportToFile(cmd.Context(), export, path); err != nil {
						failed++
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", record.Name(), err)
						continue
					}
					fmt.Fprintf(out, "Saved %s\n", path)
				}

				if failed > 0 {
					return fmt.Errorf("%d of %d exports failed", failed, len(selected))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntSliceVarP(&indexes, "index", "i", nil, "Position of the item in the list (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "Export every item")
	cmd.Flags().StringVarP(&dirFlag, "dir", "d", "", "Output directory (overrides CALIMOTO_OUTPUT_DIR)")
	return cmd
}

func selectRecords(records []calimoto.Record, indexes []int, all bool) ([]calimoto.Record, error) {
	if all {
		return records, nil
	}

	selected := make([]calimoto.Record, 0, len(indexes))
	for _, idx := range indexes {
		if idx < 1 || idx > len(records) {
			return nil, fmt.Errorf("index %d out of range (1-%d)", idx, len(records))
		}
		selected = append(selected, records[idx-1])
	}
	return selected, nil
}
