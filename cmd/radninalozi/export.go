package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/export"
)

var exportOutput string

var exportLedgerCmd = &cobra.Command{
	Use:   "export-ledger <material-id>",
	Short: "Write a material's stock card to an XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		materialID, err := id.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid material id %q: %w", args[0], err)
		}
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		m, err := a.services.Materials.Get(ctx, materialID)
		if err != nil {
			return err
		}
		rows, err := a.services.Stock.LedgerFor(ctx, materialID)
		if err != nil {
			return err
		}
		file, err := export.LedgerXLSX(m, rows)
		if err != nil {
			return err
		}

		path := exportOutput
		if path == "" {
			path = export.LedgerFileName(m)
		}
		if err := os.WriteFile(path, file, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		log.Infow("ledger exported", "material", m.Name, "entries", len(rows), "file", path)
		return nil
	},
}

func init() {
	exportLedgerCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default kartica_<id>.xlsx)")
	rootCmd.AddCommand(exportLedgerCmd)
}
