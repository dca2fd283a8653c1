package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(reportError(err))
	}
}

// reportError prints err and returns the process exit status it maps to.
func reportError(err error) int {
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintln(os.Stderr, exitErr.err)
		}
		return exitErr.code
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}
