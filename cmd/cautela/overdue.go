package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/cautela/internal/model"
	"github.com/erazemk/cautela/internal/session"
	"github.com/erazemk/cautela/internal/syncer"
	"github.com/erazemk/cautela/internal/views"
)

var nowFunc = time.Now

func newOverdueCommand(root *rootOptions) *cobra.Command {
	var unitID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List pending movements past their estimated return date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, root)
			if err != nil {
				return err
			}
			defer a.Close()

			units := a.Units.Units()
			if unitID != "" {
				u, err := a.Units.Unit(model.UnitID(unitID))
				if err != nil {
					return err
				}
				units = []*session.Unit{u}
			}

			now := nowFunc()
			out := map[model.UnitID][]views.Entry{}
			for _, u := range units {
				// Offline is fine: the cache stands in.
				_ = u.Sync.Fetch(ctx, syncer.ModeBackground)
				out[u.ID()] = views.Overdue(u.Store.Snapshot(), now)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "UNIT\tBM\tMILITAR\tMATERIAL\tORIGEM\tSAÍDA\tPREVISÃO")
			for _, u := range units {
				for _, e := range out[u.ID()] {
					m := e.Movement
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						u.ID(), m.BM, m.Borrower().Display(), m.Material, e.Origin,
						m.CheckedOutAt.Local().Format("02/01/2006"), m.EstimatedReturn.Format())
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&unitID, "unit", "", "only this unit")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
