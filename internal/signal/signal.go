// Package signal provides a root context cancelled on interrupt.
package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WithSignalCancel returns a context that is cancelled when SIGINT or SIGTERM
// is received. The returned cancel function releases the signal handler and
// must be called when done.
func WithSignalCancel(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
