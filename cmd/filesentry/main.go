// Package main provides the entry point for the filesentry CLI.
package main

import (
	"fmt"
	"os"

	"github.com/filesentry/filesentry/cmd/filesentry/cmd"
	sentryerrors "github.com/filesentry/filesentry/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, sentryerrors.FormatForCLI(err))
		os.Exit(1)
	}
}
