package wsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Conns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_conns",
		Help: "Active websocket connections",
	})
	ConnOpenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_conn_open_total",
		Help: "Total websocket connections opened",
	})
	ConnCloseTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_conn_close_total",
		Help: "Total websocket connections closed",
	})

	MsgsInTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_msgs_in_total",
		Help: "Client messages received, partitioned by type",
	}, []string{"type"}) // add/cancel

	BadMsgTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_bad_msg_total",
		Help: "Client messages rejected at the transport boundary",
	}, []string{"why"}) // parse/side/price/qty/rate

	MsgsOutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_msgs_out_total",
		Help: "Total websocket messages sent out",
	})
	BytesOutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_bytes_out_total",
		Help: "Total websocket bytes sent out",
	})
	WriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_write_errors_total",
		Help: "Total websocket write errors",
	})
	DroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_dropped_total",
		Help: "Payloads dropped instead of blocking the broadcast path",
	}, []string{"why"}) // slow_client/closed

	PingSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_ping_sent_total",
		Help: "Total ping sent",
	})
	PongRecvTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_pong_recv_total",
		Help: "Total pong received",
	})
)

func OnOpen() {
	Conns.Inc()
	ConnOpenTotal.Inc()
}

func OnClose() {
	Conns.Dec()
	ConnCloseTotal.Inc()
}
