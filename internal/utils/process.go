package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ContextWithInterrupt returns a context that is cancelled when the process
// receives an interrupt (Ctrl+C) or termination signal (SIGTERM). A second
// signal kills the process as usual once stop has been called.
func ContextWithInterrupt(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
