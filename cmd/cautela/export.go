package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/cautela/internal/export"
	"github.com/erazemk/cautela/internal/model"
	"github.com/erazemk/cautela/internal/syncer"
)

func newExportCommand(root *rootOptions) *cobra.Command {
	var unitID, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a unit's movements to an xlsx file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, root)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.Units.Unit(model.UnitID(unitID))
			if err != nil {
				return err
			}
			if err := u.Sync.Fetch(ctx, syncer.ModeBackground); err != nil {
				if !u.Sync.Status().FromCache {
					return fmt.Errorf("nothing to export: %w", err)
				}
				slog.Warn("remote unreachable, exporting local cache", "unit", u.ID(), "error", err)
			}

			if outPath == "" {
				outPath = fmt.Sprintf("cautelas-%s-%s.xlsx", u.ID(), nowFunc().Format("20060102"))
			}
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outPath, err)
			}
			records := u.Store.Snapshot()
			if err := export.WriteXLSX(f, records); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			slog.Info("export written", "unit", u.ID(), "path", outPath, "movements", len(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&unitID, "unit", string(model.UnitSede), "unit to export")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: cautelas-<unit>-<date>.xlsx)")
	return cmd
}
