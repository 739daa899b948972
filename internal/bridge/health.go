package bridge

import (
	"context"
	"time"

	"goa.design/clue/log"
)

// healthCheckInterval matches start_health_monitor's 30s tick.
const healthCheckInterval = 30 * time.Second

// startHealthMonitor runs for the lifetime of child, probing whether its
// process has exited without being told to, and self-terminating once the
// child is stopped or removed. It never restarts a child; the spec leaves
// restart semantics unspecified (DESIGN.md open question resolution).
func startHealthMonitor(ctx context.Context, child *Child) {
	go func() {
		ticker := time.NewTicker(healthCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}

			if !child.Running() {
				return
			}
			child.touchHealthCheck()

			if child.processExited() {
				log.Print(ctx, log.KV{K: "child", V: child.Name}, log.KV{K: "event", V: "exited_unexpectedly"})
				child.markStopped()
				child.corr.failAll()
				return
			}
		}
	}()
}
