package guardian

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connect_vaa_fetch_attempts_total",
			Help: "Total number of signed VAA requests sent, by guardian host",
		}, []string{"host"})

	fetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connect_vaa_fetch_failures_total",
			Help: "Total number of signed VAA requests that did not yield a valid VAA, by guardian host",
		}, []string{"host"})
)
