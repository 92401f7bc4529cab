package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quartergrid/internal/core"
	"quartergrid/internal/workbook"
)

var submitOpts struct {
	input  string
	output string
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Validate a grid and write the accepted result with computed columns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, snap, err := workbook.ReadFile(submitOpts.input)
		if err != nil {
			return err
		}
		acc, err := core.Submit(st, snap)
		if err != nil {
			if asValidation(cmd.OutOrStdout(), err) {
				return errInvalid
			}
			return err
		}
		if err := workbook.WriteFile(submitOpts.output, acc.Grid, true); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: wrote %s\n", acc.Message, submitOpts.output)
		return nil
	},
}

func init() {
	f := submitCmd.Flags()
	f.StringVarP(&submitOpts.input, "input", "i", "", "grid file (.xlsx, .yaml)")
	f.StringVarP(&submitOpts.output, "output", "o", "", "accepted grid file (.xlsx, .yaml)")
	_ = submitCmd.MarkFlagRequired("input")
	_ = submitCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(submitCmd)
}
