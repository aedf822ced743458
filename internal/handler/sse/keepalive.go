package sse

import (
	"context"
	"log/slog"
	"time"
)

// Pinger writes a frame that keeps an idle connection open.
type Pinger interface {
	WriteKeepAlive() error
}

// KeepAlive pings p every interval until ctx ends or a ping fails. The returned channel is
// closed when the loop exits, so callers can stop streaming once the connection is gone.
func KeepAlive(ctx context.Context, interval time.Duration, p Pinger, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			if err := p.WriteKeepAlive(); err != nil {
				logger.Debug("keep-alive failed", "error", err)
				return
			}
		}
	}()
	return done
}
