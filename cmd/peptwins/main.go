// PepTwins - spectral twin finder for peptide libraries
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/PepTwins/cmd/peptwins/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
