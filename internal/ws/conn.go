package ws

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"limitbook.com/internal/wsmetrics"
)

// Conn 一个订阅者连接。写全部走 writePump，Offer 只入队。
type Conn struct {
	id     string
	ws     *websocket.Conn
	send   chan []byte
	closed atomic.Bool

	msgs *rate.Limiter // 入站消息限速，防单连接刷爆 engine 队列
}

func newConn(ws *websocket.Conn, sendBuf int, msgs *rate.Limiter) *Conn {
	return &Conn{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, sendBuf),
		msgs: msgs,
	}
}

// Offer 非阻塞投递。连接已关或队列满都返回 false，广播方不关心。
func (c *Conn) Offer(payload []byte) bool {
	if c.closed.Load() {
		wsmetrics.DroppedTotal.WithLabelValues("closed").Inc()
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		wsmetrics.DroppedTotal.WithLabelValues("slow_client").Inc()
		return false
	}
}
