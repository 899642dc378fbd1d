package main

import (
	"github.com/spf13/cobra"
)

type scoreLine struct {
	ID    string   `json:"id"`
	Score *float64 `json:"score"`
}

var scoreCmd = &cobra.Command{
	Use:   "score ID...",
	Short: "Ask the ride-scoring model about trips",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		scorer, closeScorer, err := newScorer(cmd.Context(), cfg, newLogger())
		if err != nil {
			return err
		}
		defer closeScorer()

		out := make([]scoreLine, 0, len(args))
		for _, id := range args {
			line := scoreLine{ID: id}
			if s, ok := scorer.Score(cmd.Context(), id); ok {
				line.Score = &s
			}
			out = append(out, line)
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}
