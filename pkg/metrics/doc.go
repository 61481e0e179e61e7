// Package metrics exposes Prometheus instrumentation for a dstore
// manager process.
//
// Gauges that reflect point-in-time manager state (current version,
// linked object count) are sampled by pkg/manager's Collector on a
// timer; counters and histograms that reflect discrete events
// (transaction outcomes, watcher wakeups, refreshes) are updated inline
// by pkg/txn and pkg/manager as those events happen. The backend
// metrics (BackendReadsTotal, BackendWritesTotal,
// BackendOperationDuration) are registered, but no backend adapter in
// this module updates them.
package metrics
