// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vlabsound/cmd"
	"vlabsound/internal/audio"
	applog "vlabsound/internal/log"
	"vlabsound/pkg/build"
)

// main is the entry point for the vlab application.
//
// 1. Startup: build information, PortAudio.
// 2. Run: the selected command until it finishes or a termination signal
//    cancels its context.
// 3. Shutdown: sessions release their devices as the command returns,
//    then PortAudio is terminated.
func main() {
	os.Exit(run())
}

func run() int {
	// Development builds carry no ldflags; that is not fatal.
	if err := build.Initialize(); err != nil {
		applog.Debugf("Build info incomplete: %v", err)
	}

	// Initialize PortAudio subsystem. Commands that do not touch audio
	// still work when it is unavailable.
	if err := audio.Initialize(); err != nil {
		applog.Warnf("Audio unavailable: %v", err)
	} else {
		defer func() {
			if err := audio.Terminate(); err != nil {
				applog.Warnf("Error terminating audio: %v", err)
			}
		}()
	}

	// Cancel the command on Ctrl+C or SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
