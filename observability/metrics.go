// Package observability exposes the prometheus collectors tracking router
// activity: swap throughput, routed volume per liquidity origin, and the fee
// distribution sellers actually pay.
package observability

import (
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RouterMetrics wraps the collectors recording swap engine activity.
type RouterMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	volume     *prometheus.CounterVec
	feeBps     prometheus.Histogram
	reserves   *prometheus.GaugeVec
}

var (
	routerOnce     sync.Once
	routerRegistry *RouterMetrics
)

// Router returns the lazily-initialised singleton metrics registry for the
// routing engine.
func Router() *RouterMetrics {
	routerOnce.Do(func() {
		routerRegistry = &RouterMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "liquidroute",
				Subsystem: "router",
				Name:      "operations_total",
				Help:      "Count of router operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "liquidroute",
				Subsystem: "router",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for router operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			volume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "liquidroute",
				Subsystem: "router",
				Name:      "stable_volume_total",
				Help:      "Stable units routed, segmented by liquidity origin (pool or external).",
			}, []string{"origin"}),
			feeBps: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "liquidroute",
				Subsystem: "router",
				Name:      "sell_fee_bps",
				Help:      "Distribution of blended sell fees in basis points.",
				Buckets:   []float64{100, 300, 500, 1000, 2000, 3000, 5000},
			}),
			reserves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "liquidroute",
				Subsystem: "router",
				Name:      "pool_reserve",
				Help:      "Current pool reserves per symbol.",
			}, []string{"symbol"}),
		}
		prometheus.MustRegister(
			routerRegistry.operations,
			routerRegistry.latency,
			routerRegistry.volume,
			routerRegistry.feeBps,
			routerRegistry.reserves,
		)
	})
	return routerRegistry
}

// ObserveOperation records the outcome and duration of a router operation.
func (m *RouterMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordSellVolume accounts the stable units filled by each origin and the
// blended fee applied to the order.
func (m *RouterMetrics) RecordSellVolume(fromPool, fromExternal *big.Int, feeBps uint32) {
	if m == nil {
		return
	}
	if fromPool != nil && fromPool.Sign() > 0 {
		units, _ := new(big.Float).SetInt(fromPool).Float64()
		m.volume.WithLabelValues("pool").Add(units)
	}
	if fromExternal != nil && fromExternal.Sign() > 0 {
		units, _ := new(big.Float).SetInt(fromExternal).Float64()
		m.volume.WithLabelValues("external").Add(units)
	}
	m.feeBps.Observe(float64(feeBps))
}

// SetReserves publishes the current pool reserves.
func (m *RouterMetrics) SetReserves(stable, asset *big.Int) {
	if m == nil {
		return
	}
	if stable != nil {
		units, _ := new(big.Float).SetInt(stable).Float64()
		m.reserves.WithLabelValues("stable").Set(units)
	}
	if asset != nil {
		units, _ := new(big.Float).SetInt(asset).Float64()
		m.reserves.WithLabelValues("asset").Set(units)
	}
}
