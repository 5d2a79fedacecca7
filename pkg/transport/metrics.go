package transport

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chatd_transport_requests_total",
		Help: "Inbound deliveries by HTTP status code.",
	},
	[]string{"code"},
)

func init() {
	prometheus.MustRegister(requestsTotal)
}

func countStatus(code int) {
	requestsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
}
