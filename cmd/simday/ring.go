package main

import (
	"github.com/spf13/cobra"

	"github.com/pkordes/shiftsim/internal/hexgrid"
)

var (
	ringZone string
	ringK    int
)

var ringCmd = &cobra.Command{
	Use:   "ring",
	Short: "List the H3 cells within k rings of a zone",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := hexgrid.Validate(ringZone); err != nil {
			return err
		}
		k := ringK
		if !cmd.Flags().Changed("k") {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			k = cfg.Simulation.HexRingK
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"hex":   ringZone,
			"k":     max(0, k),
			"zones": hexgrid.NewH3().Ring(ringZone, k),
		})
	},
}

func init() {
	ringCmd.Flags().StringVar(&ringZone, "zone", "", "H3 cell id")
	ringCmd.Flags().IntVar(&ringK, "k", 0, "ring radius (default from config)")
	_ = ringCmd.MarkFlagRequired("zone")
}
