package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatd_commands_total",
			Help: "Commands handled by the chat actor, by command.",
		},
		[]string{"command"},
	)

	violationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatd_protocol_violations_total",
			Help: "Inbound messages dropped without a response, by reason.",
		},
		[]string{"reason"},
	)

	transportErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatd_transport_errors_total",
			Help: "Errors returned by the messaging substrate.",
		},
	)

	relayTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatd_relay_total",
			Help: "Relays to peer chat actors, by outcome.",
		},
		[]string{"outcome"},
	)

	relayDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatd_relay_duration_seconds",
			Help:    "Time spent waiting on a peer chat actor.",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	archiveEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatd_archive_entries",
			Help: "Entries held in the in-memory archive.",
		},
	)
)

func init() {
	prometheus.MustRegister(commandsTotal)
	prometheus.MustRegister(violationsTotal)
	prometheus.MustRegister(transportErrorsTotal)
	prometheus.MustRegister(relayTotal)
	prometheus.MustRegister(relayDuration)
	prometheus.MustRegister(archiveEntries)
}
