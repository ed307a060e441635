// Command stomp runs the stomp box firmware on a host machine.
//
// Usage:
//
//	stomp run [flags]                     real-time simulation
//	stomp render [flags] in.wav out.wav   offline processing with a scenario
//	stomp programs                        list programs and their controls
//	stomp info                            build constants, pins and CPU
//
// Examples:
//
//	stomp run --source sine --freq 110 --program tremolo --listen :9090
//	stomp render --scenario toggles.yaml guitar.wav out.wav
//	stomp --config pedal.yaml run --midi /dev/snd/midiC1D0
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "stomp: %v\n", err)
		return 1
	}
	return 0
}
