package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"quartergrid/internal/core"
	"quartergrid/internal/workbook"
)

var templateOpts struct {
	tables int
	rows   int
	year   int
	output string
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write a blank grid",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if templateOpts.tables < 1 || templateOpts.rows < 1 {
			return fmt.Errorf("tables and rows must be at least 1")
		}
		st := blankState(templateOpts.tables, templateOpts.rows, templateOpts.year)
		if err := workbook.WriteFile(templateOpts.output, core.BuildGrid(st, core.Snapshot{}), false); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d×%d grid to %s\n", st.Tables, st.Rows, templateOpts.output)
		return nil
	},
}

func blankState(tables, rows, year int) core.State {
	if year == 0 {
		year = time.Now().Year()
	}
	st := core.NewState(year)
	for st.Tables < tables {
		st = st.AddTable()
	}
	for st.Rows < rows {
		st = st.AddRow()
	}
	return st
}

func init() {
	f := templateCmd.Flags()
	f.IntVar(&templateOpts.tables, "tables", 1, "number of tables")
	f.IntVar(&templateOpts.rows, "rows", 1, "number of rows per table")
	f.IntVar(&templateOpts.year, "year", 0, "current year (default: this year)")
	f.StringVarP(&templateOpts.output, "output", "o", "", "output file (.xlsx, .yaml)")
	_ = templateCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(templateCmd)
}
