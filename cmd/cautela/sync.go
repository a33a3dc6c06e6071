package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/erazemk/cautela/internal/syncer"
	"github.com/erazemk/cautela/internal/views"
)

func newSyncCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch every unit's table from its spreadsheet into the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, root)
			if err != nil {
				return err
			}
			defer a.Close()

			syncErr := a.Units.SyncAll(ctx, syncer.ModeManual)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "UNIT\tSTATE\tTOTAL\tPENDING\tOVERDUE")
			for _, u := range a.Units.Units() {
				state := "ok"
				switch st := u.Sync.Status(); {
				case st.FromCache:
					state = "cache"
				case st.Error:
					state = "failed"
				}
				s := views.Summarize(u.Store.Snapshot(), nowFunc())
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", u.ID(), state, s.Total, s.Pending, s.Overdue)
			}
			tw.Flush()

			if syncErr != nil {
				slog.Error("sync failed", "error", syncErr)
			}
			return syncErr
		},
	}
}
