package watch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricewatch_scrape_cycles_total",
		Help: "Completed scrape cycles, success or failure.",
	})
	metricFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricewatch_scrape_failures_total",
		Help: "Failed scrape cycles by error kind.",
	}, []string{"kind"})
	metricRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricewatch_session_rebuilds_total",
		Help: "Browser sessions torn down and recreated after repeated failures.",
	})
	metricConsecutiveFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pricewatch_consecutive_failures",
		Help: "Current run of consecutive failed cycles.",
	})
	metricLastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pricewatch_last_success_timestamp_seconds",
		Help: "Unix time of the last successful scrape.",
	})
)
