package main

import (
	"github.com/spf13/cobra"

	"github.com/pkordes/shiftsim/internal/domain"
	"github.com/pkordes/shiftsim/internal/service"
)

var (
	simDriver    string
	simDate      string
	simTolerance int
	simLookahead int
	simRingK     int
	simCompare   bool
)

// simulateOutput is a SimulationResult plus the comparison when --compare is set.
type simulateOutput struct {
	domain.SimulationResult
	Improvements *domain.Improvements `json:"improvements,omitempty"`
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate a driver's day against nearby offers",
	Long:  "simulate builds the greedy counterfactual day. Flags left unset use the configured defaults.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		date, err := parseDate(simDate)
		if err != nil {
			return err
		}

		var p service.SimulationParams
		flags := cmd.Flags()
		if flags.Changed("tol") {
			p.ToleranceMinutes = &simTolerance
		}
		if flags.Changed("lookahead") {
			p.LookaheadMinutes = &simLookahead
		}
		if flags.Changed("k") {
			p.RingK = &simRingK
		}

		svc, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.close()

		res, err := svc.simulator.SimulateDay(cmd.Context(), simDriver, date, p)
		if err != nil {
			return err
		}

		out := simulateOutput{SimulationResult: res}
		if simCompare {
			imp := domain.Compare(res.Baseline, res.Simulated)
			out.Improvements = &imp
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simDriver, "driver", "", "driver id")
	f.StringVar(&simDate, "date", "", "local day, YYYY-MM-DD")
	f.IntVar(&simTolerance, "tol", 0, "drive-time tolerance in minutes")
	f.IntVar(&simLookahead, "lookahead", 0, "candidate window in minutes")
	f.IntVar(&simRingK, "k", 0, "H3 ring radius")
	f.BoolVar(&simCompare, "compare", true, "include improvements over the baseline")
	_ = simulateCmd.MarkFlagRequired("driver")
	_ = simulateCmd.MarkFlagRequired("date")
}
