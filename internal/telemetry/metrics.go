// Package telemetry implements the MetricsEmitter boundary: request-latency
// histograms, error counters, and lag gauges, labeled only by method.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// requestDurationBuckets are the fixed histogram boundaries §4.E specifies.
var requestDurationBuckets = []float64{0.05, 0.2, 0.5, 1.0, 3.0, 5.0}

// Emitter is the MetricsEmitter: histograms for request latency, counters
// for errors, gauges for lag and the last reverted block.
type Emitter struct {
	requestDuration  *prometheus.HistogramVec
	requestErrors    *prometheus.CounterVec
	blocksBehind     prometheus.Gauge
	lastRevertedBlock prometheus.Gauge
}

// New registers the MetricsEmitter's series against reg. Passing a fresh
// prometheus.NewRegistry() per test avoids the duplicate-registration panic
// promauto's package-level MustRegister would otherwise hit.
func New(reg prometheus.Registerer) *Emitter {
	factory := promauto.With(reg)
	return &Emitter{
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chain_rpc_request_duration_seconds",
			Help:    "Duration of ChainClient requests, by method.",
			Buckets: requestDurationBuckets,
		}, []string{"method"}),
		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chain_rpc_request_errors_total",
			Help: "Count of ChainClient request failures, by method.",
		}, []string{"method"}),
		blocksBehind: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chain_scan_blocks_behind",
			Help: "Gap between the latest known chain head and the last scanned block.",
		}),
		lastRevertedBlock: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chain_scan_last_reverted_block",
			Help: "Block number of the most recently observed reorg/revert boundary.",
		}),
	}
}

// ObserveRequest records the duration of a single ChainClient call.
func (e *Emitter) ObserveRequest(method string, d time.Duration) {
	e.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordError increments the error counter for method.
func (e *Emitter) RecordError(method string) {
	e.requestErrors.WithLabelValues(method).Inc()
}

// SetBlocksBehind updates the lag gauge.
func (e *Emitter) SetBlocksBehind(n uint64) {
	e.blocksBehind.Set(float64(n))
}

// SetLastRevertedBlock updates the last-reverted-block gauge.
func (e *Emitter) SetLastRevertedBlock(number uint64) {
	e.lastRevertedBlock.Set(float64(number))
}

// Timed wraps fn, observing its duration and recording an error on failure.
// This is the shape every ChainClient method below uses to stay instrumented
// without repeating the timing boilerplate at each call site.
func (e *Emitter) Timed(method string, fn func() error) error {
	start := time.Now()
	err := fn()
	e.ObserveRequest(method, time.Since(start))
	if err != nil {
		e.RecordError(method)
	}
	return err
}
