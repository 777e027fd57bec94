// Package metrics exposes the bot's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the bot updates. All collectors live on one
// registry so the export surface is exactly what the bot registers.
type Metrics struct {
	Position prometheus.Gauge
	BestBid  prometheus.Gauge
	BestAsk  prometheus.Gauge

	OrdersPlaced    prometheus.Counter
	OrdersCancelled prometheus.Counter
	OrdersRejected  prometheus.Counter
	FilledSize      prometheus.Counter
	QuoteRounds     prometheus.Counter
	RoundsAbandoned prometheus.Counter

	registry *prometheus.Registry
}

// New creates and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		Position: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quoter_position",
			Help: "Current signed position in contracts",
		}),
		BestBid: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quoter_best_bid",
			Help: "Best bid price on the tracked instrument",
		}),
		BestAsk: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quoter_best_ask",
			Help: "Best ask price on the tracked instrument",
		}),
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quoter_orders_placed_total",
			Help: "Orders accepted by the exchange",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quoter_orders_cancelled_total",
			Help: "Orders cancelled by the bot",
		}),
		OrdersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quoter_orders_rejected_total",
			Help: "Order placements rejected by the exchange",
		}),
		FilledSize: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quoter_filled_size_total",
			Help: "Cumulative absolute filled size",
		}),
		QuoteRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quoter_quote_rounds_total",
			Help: "Completed cancel-and-replace rounds",
		}),
		RoundsAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quoter_rounds_abandoned_total",
			Help: "Rounds abandoned before placement",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.Position, m.BestBid, m.BestAsk,
		m.OrdersPlaced, m.OrdersCancelled, m.OrdersRejected,
		m.FilledSize, m.QuoteRounds, m.RoundsAbandoned,
	)
	return m
}

// Registry returns the backing registry for the export handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
