// Package metrics exposes supervisor activity as Prometheus collectors.
package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "procwatch"
	subsystem = "supervisor"
)

// Package-level collectors. They are registered via Register.
var (
	regOK atomic.Bool

	restarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "restarts_total",
			Help:      "Number of successful relaunches of a missing target.",
		}, []string{"target"},
	)
	launchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "launch_failures_total",
			Help:      "Number of relaunch attempts that could not execute the command.",
		}, []string{"target"},
	)
	pollCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "poll_cycles_total",
			Help:      "Number of completed poll cycles.",
		},
	)
	snapshotFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "snapshot_failures_total",
			Help:      "Number of poll cycles skipped because the process table could not be read.",
		},
	)
	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one poll cycle.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	running = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "running",
			Help:      "1 while supervision is active, 0 otherwise.",
		},
	)
	targets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "targets",
			Help:      "Number of watch targets seen by the last poll cycle.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{restarts, launchFailures, pollCycles, snapshotFailures, cycleDuration, running, targets}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// The helpers below no-op until Register succeeds.

// IncRestart counts one successful relaunch of target.
func IncRestart(target string) {
	if regOK.Load() {
		restarts.WithLabelValues(target).Inc()
	}
}

// IncLaunchFailure counts one relaunch of target that could not start.
func IncLaunchFailure(target string) {
	if regOK.Load() {
		launchFailures.WithLabelValues(target).Inc()
	}
}

// IncSnapshotFailure counts one cycle skipped on a failed process table read.
func IncSnapshotFailure() {
	if regOK.Load() {
		snapshotFailures.Inc()
	}
}

// ObserveCycle records one finished poll cycle.
func ObserveCycle(d time.Duration, targetCount int) {
	if regOK.Load() {
		pollCycles.Inc()
		cycleDuration.Observe(d.Seconds())
		targets.Set(float64(targetCount))
	}
}

// SetRunning sets the running gauge.
func SetRunning(on bool) {
	if !regOK.Load() {
		return
	}
	if on {
		running.Set(1)
	} else {
		running.Set(0)
	}
}

// RestartsCounter exposes the restart counter (for testing).
func RestartsCounter() *prometheus.CounterVec { return restarts }

// LaunchFailuresCounter exposes the launch failure counter (for testing).
func LaunchFailuresCounter() *prometheus.CounterVec { return launchFailures }
