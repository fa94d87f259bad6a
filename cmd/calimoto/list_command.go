package main

import (
	"fmt"
	"strconv"

	"github.com/eshaffer321/calimoto-go/pkg/calimoto"
	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "list <routes|tracks>",
		Short:     "List routes or tracks, newest first",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"routes", "tracks"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := calimoto.ParseKind(args[0])
			if err != nil {
				return err
			}

			return ctx.withSession(cmd.Context(), func(client *calimoto.Client) error {
				records, err := listSorted(cmd, client, kind)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintf(out, "No %s found\n", kind)
					return nil
				}
				fmt.Fprintln(out, renderRecords(records))
				return nil
			})
		},
	}
}

func listSorted(cmd *cobra.Command, client *calimoto.Client, kind calimoto.Kind) ([]calimoto.Record, error) {
	records, err := client.Items(kind).List(cmd.Context())
	if err != nil {
		return nil, err
	}
	calimoto.SortByDate(records)
	return records, nil
}

func renderRecords(records []calimoto.Record) string {
	rows := make([][]string, 0, len(records))
	for i, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.Name(),
			r.DisplayDate(),
			strconv.FormatFloat(r.DistanceKm(), 'f', 1, 64),
		})
	}
	return renderTable(
		[]string{"#", "Name", "Date", "Distance (km)"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	)
}
