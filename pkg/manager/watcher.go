package manager

import (
	"context"
	"weak"

	"github.com/cuemby/dstore/pkg/metrics"
)

// watch is the Manager's background refresh loop. It holds only a weak
// reference to the Manager it serves: once the Manager becomes
// otherwise unreachable, ref.Value() starts returning nil and the loop
// exits on its own, rather than keeping the Manager alive forever the
// way a strong back-reference would.
func watch(ref weak.Pointer[Manager]) {
	for {
		m := ref.Value()
		if m == nil {
			return
		}
		be := m.be
		m = nil // drop the strong reference before the blocking wait below

		changed, err := be.TargetWait(context.Background())
		if err != nil {
			// A transient failure (a decode error on one poll, a dropped
			// RPC) doesn't mean the backend is gone, so log and keep
			// polling rather than ending the loop for good.
			if m = ref.Value(); m != nil {
				m.log.Warn().Err(err).Msg("watcher: target_wait failed")
			}
			continue
		}
		if !changed {
			continue
		}

		m = ref.Value()
		if m == nil {
			return
		}
		metrics.WatcherWakeupsTotal.Inc()

		m.mu.Lock()
		if m.transActive {
			m.needsUpdate = true
			m.mu.Unlock()
			metrics.WatcherDeferredRefreshesTotal.Inc()
			continue
		}
		_, err = m.refreshLocked(context.Background(), nil)
		m.mu.Unlock()
		if err != nil {
			m.log.Warn().Err(err).Msg("watcher: refresh failed")
		}
	}
}
