// Package metrics exposes the engine's command-level Prometheus
// instrumentation — a counter of dispatched commands labeled by verb and
// outcome, a duration histogram, and a few gauges/counters the scheduler
// and client registry feed directly — all surfaced through INFO and an
// optional /metrics HTTP endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommandsTotal counts every command Dispatch resolves, labeled by
	// verb and "ok"/"error".
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toridb_commands_total",
			Help: "Total number of commands dispatched, by verb and outcome",
		},
		[]string{"verb", "outcome"},
	)

	// CommandDuration measures how long each command took to run inside
	// Dispatch, labeled by verb.
	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "toridb_command_duration_seconds",
			Help:    "Duration of dispatched commands in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"verb"},
	)

	// ConnectedClients tracks how many sessions are currently registered
	// in the client registry.
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "toridb_connected_clients",
			Help: "Number of currently connected client sessions",
		},
	)

	// KeysSweptTotal counts expired keyspace entries removed by the
	// periodic TTL sweep (not those reaped lazily on read).
	KeysSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "toridb_keys_swept_total",
			Help: "Total number of expired keyspace entries removed by the periodic sweep",
		},
	)

	// CheckpointsTotal counts periodic and explicit SAVE checkpoints,
	// labeled by database name and "ok"/"error".
	CheckpointsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toridb_checkpoints_total",
			Help: "Total number of database checkpoints taken, by database and outcome",
		},
		[]string{"database", "outcome"},
	)
)
