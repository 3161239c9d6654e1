package ws

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	ginprom "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"limitbook.com/internal/book"
	"limitbook.com/internal/engine"
	"limitbook.com/internal/wsmetrics"
	"limitbook.com/pkg/ratelimit"
	"limitbook.com/pkg/safe"
)

type Options struct {
	SendBuf    int           // per-conn 发送队列长度
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
	ReadLimit  int64
	MsgRate    float64 // 每连接入站消息速率（条/秒）
	MsgBurst   int
	ConnRate   float64 // 每 IP 新建连接速率
	ConnBurst  int
}

func (o *Options) withDefaults() {
	if o.SendBuf <= 0 {
		o.SendBuf = 256
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 30 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 5 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 1 << 12
	}
	if o.MsgRate <= 0 {
		o.MsgRate = 200
	}
	if o.MsgBurst <= 0 {
		o.MsgBurst = 400
	}
	if o.ConnRate <= 0 {
		o.ConnRate = 10
	}
	if o.ConnBurst <= 0 {
		o.ConnBurst = 20
	}
}

// Server WebSocket 接入层：升级连接、解析客户端意图、给 add 发号、
// 喂 engine。出站的 book/trade 走 hub 扇出；attach 快照直接投给新连接。
type Server struct {
	hub   *Hub
	eng   *engine.Engine
	conv  *Converter
	codec *Codec
	up    websocket.Upgrader
	opts  Options
	ips   *ratelimit.Store

	nextID atomic.Uint64 // 订单号由 transport 分配，单调递增

	log *zap.Logger
}

func NewServer(ctx context.Context, eng *engine.Engine, hub *Hub, conv *Converter, opts Options, log *zap.Logger) *Server {
	opts.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		hub:   hub,
		eng:   eng,
		conv:  conv,
		codec: NewCodec(conv),
		opts:  opts,
		ips:   ratelimit.NewStore(rate.Limit(opts.ConnRate), opts.ConnBurst, 10*time.Minute),
		up: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// UI 和 feed 同进程部署，Origin 放开
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
	// 不清理的话 per-IP 限流 map 会一直涨
	s.ips.StartJanitor(ctx, time.Minute)
	return s
}

// Router /ws 升级 + 健康检查 + prometheus + 静态 UI。
func (s *Server) Router(uiFile string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), cors.Default())
	p := ginprom.NewPrometheus("limitbook")
	p.Use(r)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "conns": s.hub.Len()})
	})
	r.GET("/ws", func(c *gin.Context) {
		s.ServeWS(c.Writer, c.Request)
	})
	if uiFile != "" {
		r.StaticFile("/", uiFile)
	}
	return r
}

func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !s.ips.Allow(clientIP(r)) {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}
	wsConn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	lim := rate.NewLimiter(rate.Limit(s.opts.MsgRate), s.opts.MsgBurst)
	c := newConn(wsConn, s.opts.SendBuf, lim)
	wsmetrics.OnOpen()

	// attach 即回全量快照，只发给新订阅者。必须在进 hub 之前入队：
	// 广播跑在 engine worker 上，先 add 的话 book 更新可能插到快照前面，
	// 客户端会先收 book 再收 snapshot，旧快照把新簿盖掉。
	c.Offer(s.codec.EncodeBook("snapshot", s.eng.Snapshot()))
	s.hub.add(c)

	s.log.Info("ws attached", zap.String("conn", c.id), zap.String("ip", clientIP(r)))
	safe.Go(func() { s.writePump(c) })
	safe.Go(func() { s.readPump(c) })
}

func (s *Server) readPump(c *Conn) {
	defer func() {
		c.closed.Store(true)
		s.hub.remove(c)
		_ = c.ws.Close()
		wsmetrics.OnClose()
		s.log.Info("ws detached", zap.String("conn", c.id))
	}()

	c.ws.SetReadLimit(s.opts.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	c.ws.SetPongHandler(func(string) error {
		wsmetrics.PongRecvTotal.Inc()
		_ = c.ws.SetReadDeadline(time.Now().Add(s.opts.PongWait))
		return nil
	})

	for {
		_, b, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("ws read error", zap.String("conn", c.id), zap.Error(err))
			}
			return
		}
		if !c.msgs.Allow() {
			wsmetrics.BadMsgTotal.WithLabelValues("rate").Inc()
			continue
		}
		s.handleClientMsg(c, b)
	}
}

func (s *Server) handleClientMsg(c *Conn, b []byte) {
	var msg ClientMsg
	if err := json.Unmarshal(b, &msg); err != nil {
		// 解析失败只记日志不进核心，连接保留
		wsmetrics.BadMsgTotal.WithLabelValues("parse").Inc()
		s.log.Debug("malformed message", zap.String("conn", c.id), zap.Error(err))
		return
	}

	switch msg.Type {
	case "add":
		s.handleAdd(c, msg)
	case "cancel":
		if msg.OrderID == 0 {
			wsmetrics.BadMsgTotal.WithLabelValues("parse").Inc()
			return
		}
		wsmetrics.MsgsInTotal.WithLabelValues("cancel").Inc()
		if err := s.eng.Cancel(msg.OrderID); err != nil {
			s.log.Warn("cancel rejected, engine stopped",
				zap.String("conn", c.id), zap.Uint64("order_id", msg.OrderID))
		}
	default:
		wsmetrics.BadMsgTotal.WithLabelValues("parse").Inc()
	}
}

func (s *Server) handleAdd(c *Conn, msg ClientMsg) {
	var side book.Side
	switch msg.Side {
	case "buy":
		side = book.Buy
	case "sell":
		side = book.Sell
	default:
		wsmetrics.BadMsgTotal.WithLabelValues("side").Inc()
		return
	}

	price, err := s.conv.PriceToTicks(msg.Price)
	if err != nil {
		wsmetrics.BadMsgTotal.WithLabelValues("price").Inc()
		s.log.Debug("bad price", zap.String("conn", c.id), zap.String("price", msg.Price.String()))
		return
	}
	qty, err := s.conv.QtyToUnits(msg.Qty)
	if err != nil {
		wsmetrics.BadMsgTotal.WithLabelValues("qty").Inc()
		s.log.Debug("bad qty", zap.String("conn", c.id), zap.String("qty", msg.Qty.String()))
		return
	}

	id := s.nextID.Add(1)
	wsmetrics.MsgsInTotal.WithLabelValues("add").Inc()
	err = s.eng.Submit(book.Order{
		ID:           id,
		Side:         side,
		Price:        price,
		InitialQty:   qty,
		RemainingQty: qty,
	})
	if err != nil {
		s.log.Warn("submit rejected, engine stopped",
			zap.String("conn", c.id), zap.Uint64("order_id", id))
	}
}

func (s *Server) writePump(c *Conn) {
	ticker := time.NewTicker(s.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				wsmetrics.WriteErrorsTotal.Inc()
				return
			}
			wsmetrics.MsgsOutTotal.Inc()
			wsmetrics.BytesOutTotal.Add(float64(len(payload)))
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(s.opts.WriteWait)); err != nil {
				return
			}
			wsmetrics.PingSentTotal.Inc()
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
