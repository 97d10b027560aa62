package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// moderation transitions labelled by action and outcome
	ModerationActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mayflower_moderation_actions_total",
			Help: "Total moderation transitions by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	// datastore calls labelled by namespace, operation and result
	StoreOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mayflower_store_operations_total",
			Help: "Total datastore operations",
		},
		[]string{"namespace", "op", "result"},
	)

	// datastore call latency in seconds
	StoreLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mayflower_store_duration_seconds",
			Help:    "Histogram of datastore call latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"namespace", "op"},
	)

	// messaging publishes labelled by topic and result
	Publishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mayflower_publishes_total",
			Help: "Total messaging publishes",
		},
		[]string{"topic", "result"},
	)

	// version conflicts retried by the ledger
	LedgerConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mayflower_ledger_conflicts_total",
			Help: "Total warning writes retried after a version conflict",
		},
	)

	// manage sessions labelled by lifecycle event
	Sessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mayflower_sessions_total",
			Help: "Total manage session lifecycle events",
		},
		[]string{"event"},
	)

	// per-guild ban calls made by cross-server bans
	GuildBans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mayflower_guild_bans_total",
			Help: "Total per-guild ban and unban calls",
		},
		[]string{"action", "result"},
	)

	// alert direct messages labelled by result
	AlertMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mayflower_alert_messages_total",
			Help: "Total direct messages sent by role alerts",
		},
		[]string{"result"},
	)

	// audit database query latency labelled by operation and result
	QueryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mayflower_db_query_duration_seconds",
			Help:    "Histogram of audit database query latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "result"},
	)

	// log entries labelled by level
	LogEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mayflower_log_entries_total",
			Help: "Total log entries written",
		},
		[]string{"level"},
	)
)

// Result label values.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultConflict = "conflict"
	ResultError    = "error"
)

func init() {
	prometheus.MustRegister(
		ModerationActions,
		StoreOperations,
		StoreLatency,
		Publishes,
		LedgerConflicts,
		Sessions,
		GuildBans,
		AlertMessages,
		QueryLatency,
		LogEntries,
	)
}
