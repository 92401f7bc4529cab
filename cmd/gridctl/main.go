// Command gridctl works with quarter grids stored as workbooks or YAML
// documents, without a running server.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errInvalid is returned after validation errors have been printed.
var errInvalid = errors.New("grid is invalid")

var rootCmd = &cobra.Command{
	Use:           "gridctl",
	Short:         "Validate and compute quarter grids offline",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
