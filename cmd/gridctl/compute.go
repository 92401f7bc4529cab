package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quartergrid/internal/core"
)

var computeRaw bool

var computeCmd = &cobra.Command{
	Use:   "compute [jan ... dec]",
	Short: "Print quarter and year-to-date values for up to twelve months",
	Long:  "Missing trailing months and empty arguments count as 0. Commas are accepted as decimal separators.",
	Args:  cobra.MaximumNArgs(12),
	RunE: func(cmd *cobra.Command, args []string) error {
		var months [12]float64
		for i, arg := range args {
			v, _, err := core.ParseValue(arg)
			if err != nil {
				return fmt.Errorf("month %d: %w", i+1, err)
			}
			months[i] = v
		}
		agg := core.ComputeRow(months)
		if !computeRaw {
			agg = agg.Rounded()
		}
		out := cmd.OutOrStdout()
		for _, col := range []core.Column{core.ColQ1, core.ColQ2, core.ColQ3, core.ColQ4, core.ColYTD} {
			v, _ := agg.Value(col)
			fmt.Fprintf(out, "%s\t%v\n", col, v)
		}
		return nil
	},
}

func init() {
	computeCmd.Flags().BoolVar(&computeRaw, "raw", false, "print unrounded values")
	rootCmd.AddCommand(computeCmd)
}
