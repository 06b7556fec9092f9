package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	err := newRootCmd(a).ExecuteContext(ctx)
	_ = a.teardown()
	if err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(exitCode(err))
	}
}
