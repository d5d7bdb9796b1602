package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler creates a context that cancels on first Ctrl+C.
// Second Ctrl+C calls os.Exit(1). Returns the cancellable context.
func SetupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			signal.Stop(sigCh)
			return
		}
		cancel()
		// Second signal: hard exit.
		<-sigCh
		os.Exit(1)
	}()

	return ctx, cancel
}

// Stopped prints the message shown when a long-running command ends on
// Ctrl+C.
func Stopped(out io.Writer, what string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, Info(what+" stopped."))
}
