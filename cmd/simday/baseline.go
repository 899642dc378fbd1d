package main

import (
	"github.com/spf13/cobra"
)

var (
	baselineDriver string
	baselineDate   string
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Print a driver's observed day",
	RunE: func(cmd *cobra.Command, _ []string) error {
		date, err := parseDate(baselineDate)
		if err != nil {
			return err
		}
		svc, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.close()

		b, err := svc.baseline.Compute(cmd.Context(), baselineDriver, date)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), b)
	},
}

func init() {
	baselineCmd.Flags().StringVar(&baselineDriver, "driver", "", "driver id")
	baselineCmd.Flags().StringVar(&baselineDate, "date", "", "local day, YYYY-MM-DD")
	_ = baselineCmd.MarkFlagRequired("driver")
	_ = baselineCmd.MarkFlagRequired("date")
}
