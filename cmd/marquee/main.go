package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"marquee/internal/update"
)

// Exit codes. Schedulers treat exitLocked as "skipped" rather than failed.
const (
	exitFailure     = 1
	exitLocked      = 75
	exitInterrupted = 130
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, update.ErrLocked):
		return exitLocked
	default:
		return exitFailure
	}
}
