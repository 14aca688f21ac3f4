// Package main provides the entry point for the pea CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/pea/cmd/pea/cmd"
	"github.com/Aman-CERP/pea/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errors.FormatForCLI(err))
		os.Exit(1)
	}
}
