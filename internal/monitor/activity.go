package monitor

import (
	"context"
	"time"

	"github.com/sweeney/canary/internal/hal"
)

// RunActivityWatcher feeds activity edges to onEdge until ctx is done or
// the edge channel is closed.
func RunActivityWatcher(ctx context.Context, edges <-chan hal.Edge, onEdge func(at time.Time) bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-edges:
			if !ok {
				return nil
			}
			onEdge(e.Time)
		}
	}
}
