package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cmdTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_commands_total",
		Help: "Commands applied by the engine worker",
	}, []string{"type"}) // submit/cancel/snapshot

	rejectTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_rejects_total",
		Help: "Client-caused commands absorbed without a book change",
	}, []string{"reason"}) // duplicate_id/invalid/unknown_cancel

	tradesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_trades_total",
		Help: "Trades emitted",
	})

	tradeQtyTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_trade_qty_total",
		Help: "Total quantity filled across all trades",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "engine_queue_depth",
		Help: "Commands waiting in the mailbox",
	})

	restingOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "engine_resting_orders",
		Help: "Orders currently resting in the book",
	})
)
