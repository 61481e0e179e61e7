package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Manager metrics
	CurrentVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dstore_current_version",
			Help: "Version of the root object currently held by this manager",
		},
	)

	ObjectsLinked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dstore_objects_linked",
			Help: "Number of distributed objects currently tracked in the object map",
		},
	)

	RefreshesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dstore_refreshes_total",
			Help: "Total number of times the manager adopted a newer snapshot from the backend",
		},
	)

	// Transaction metrics
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dstore_transactions_total",
			Help: "Total number of transactions by outcome",
		},
		[]string{"outcome"}, // committed, rolled_back, conflict
	)

	TransactionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dstore_transaction_duration_seconds",
			Help:    "Wall-clock duration of a top-level transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	TransactionRetries = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dstore_transaction_retries",
			Help:    "Number of retries consumed before a transactional call returned",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	TransactionConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dstore_transaction_conflicts_total",
			Help: "Total number of commit attempts rejected by a concurrent writer",
		},
	)

	TransactionTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dstore_transaction_timeouts_total",
			Help: "Total number of transactional calls that exceeded their deadline",
		},
	)

	// Backend metrics
	BackendReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dstore_backend_reads_total",
			Help: "Total number of backend read calls by backend kind and outcome",
		},
		[]string{"backend", "outcome"},
	)

	BackendWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dstore_backend_writes_total",
			Help: "Total number of backend write/try_write calls by backend kind and outcome",
		},
		[]string{"backend", "outcome"},
	)

	BackendOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dstore_backend_operation_duration_seconds",
			Help:    "Duration of backend operations by kind and operation name",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	// Watcher metrics
	WatcherWakeupsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dstore_watcher_wakeups_total",
			Help: "Total number of times the watcher observed a foreign change on the backend",
		},
	)

	WatcherDeferredRefreshesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dstore_watcher_deferred_refreshes_total",
			Help: "Total number of watcher wakeups deferred because a transaction was in progress",
		},
	)
)

func init() {
	prometheus.MustRegister(CurrentVersion)
	prometheus.MustRegister(ObjectsLinked)
	prometheus.MustRegister(RefreshesTotal)
	prometheus.MustRegister(TransactionsTotal)
	prometheus.MustRegister(TransactionDuration)
	prometheus.MustRegister(TransactionRetries)
	prometheus.MustRegister(TransactionConflictsTotal)
	prometheus.MustRegister(TransactionTimeoutsTotal)
	prometheus.MustRegister(BackendReadsTotal)
	prometheus.MustRegister(BackendWritesTotal)
	prometheus.MustRegister(BackendOperationDuration)
	prometheus.MustRegister(WatcherWakeupsTotal)
	prometheus.MustRegister(WatcherDeferredRefreshesTotal)
}
