package manager

import (
	"sync"
	"time"

	"github.com/cuemby/dstore/pkg/metrics"
)

// Collector periodically samples a Manager's Stats into the package
// metrics gauges. Most callers don't need one: Refresh/Write/TryWrite
// already update CurrentVersion/ObjectsLinked inline on every adopted
// snapshot. Collector exists for the case where nothing is driving the
// Manager (no active readers or writers) but its gauges should still
// reflect reality, e.g. a Manager sitting idle behind a metrics
// endpoint.
type Collector struct {
	mgr      *Manager
	interval time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	stopped bool
}

// NewCollector creates a Collector sampling mgr every interval. It does
// not start until Start is called.
func NewCollector(mgr *Manager, interval time.Duration) *Collector {
	return &Collector{mgr: mgr, interval: interval}
}

// Start begins the sampling loop in a background goroutine. Calling
// Start more than once is a no-op after the first call.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopCh != nil {
		return
	}
	c.stopCh = make(chan struct{})
	go c.run(c.stopCh)
}

// Stop halts the sampling loop. It is safe to call more than once.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.stopCh == nil {
		return
	}
	close(c.stopCh)
	c.stopped = true
}

func (c *Collector) run(stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *Collector) collect() {
	stats := c.mgr.Stats()
	metrics.CurrentVersion.Set(float64(stats.Version))
	metrics.ObjectsLinked.Set(float64(stats.LinkedObjects))
}
