package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"quartergrid/internal/core"
	"quartergrid/internal/workbook"
)

var validateInput string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a grid and print every addressed error",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, snap, err := workbook.ReadFile(validateInput)
		if err != nil {
			return err
		}
		if errs := core.Validate(st, snap); len(errs) > 0 {
			printErrors(cmd.OutOrStdout(), errs)
			return errInvalid
		}
		fmt.Fprintln(cmd.OutOrStdout(), core.MsgValid)
		return nil
	},
}

func printErrors(w io.Writer, errs core.ValidationErrors) {
	for _, e := range errs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Key, e.Kind, e.Message)
	}
	fmt.Fprintf(w, "%d error(s)\n", len(errs))
}

// asValidation reports whether err carries validation errors and prints them.
func asValidation(w io.Writer, err error) bool {
	var errs core.ValidationErrors
	if !errors.As(err, &errs) {
		return false
	}
	printErrors(w, errs)
	return true
}

func init() {
	validateCmd.Flags().StringVarP(&validateInput, "input", "i", "", "grid file (.xlsx, .yaml)")
	_ = validateCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(validateCmd)
}
