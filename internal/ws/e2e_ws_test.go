package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"limitbook.com/internal/book"
	"limitbook.com/internal/engine"
)

func newStack(t *testing.T) *Server {
	t.Helper()
	conv, err := NewConverter("0.01", "0.001")
	if err != nil {
		t.Fatalf("converter: %v", err)
	}
	hub := NewHub()
	eng := engine.New(book.New(), engine.Config{QueueSize: 256, SelfCheck: true}, nil)
	if err := eng.InstallSink(NewBridge(hub, NewCodec(conv))); err != nil {
		t.Fatalf("install sink: %v", err)
	}
	if err := eng.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(eng.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewServer(ctx, eng, hub, conv, Options{}, nil)
}

func newWSServer(t *testing.T, srv *Server) (*httptest.Server, string) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			srv.ServeWS(w, r)
			return
		}
		w.WriteHeader(404)
	}))
	t.Cleanup(ts.Close)
	return ts, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err=%v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))
	return c
}

func writeJSON(t *testing.T, c *websocket.Conn, v any) {
	t.Helper()
	b, _ := json.Marshal(v)
	if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write err=%v", err)
	}
}

// readMsg 读下一条并返回 type + 原始 payload
func readMsg(t *testing.T, c *websocket.Conn) (string, []byte) {
	t.Helper()
	_, b, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read err=%v", err)
	}
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		t.Fatalf("unmarshal %q: %v", b, err)
	}
	return probe.Type, b
}

func readBook(t *testing.T, c *websocket.Conn, wantType string) BookMsg {
	t.Helper()
	typ, b := readMsg(t, c)
	if typ != wantType {
		t.Fatalf("expected %q message, got %q (%s)", wantType, typ, b)
	}
	var msg BookMsg
	if err := json.Unmarshal(b, &msg); err != nil {
		t.Fatalf("unmarshal book: %v", err)
	}
	return msg
}

func TestE2E_SnapshotOnAttach(t *testing.T) {
	srv := newStack(t)
	_, url := newWSServer(t, srv)

	c := dial(t, url)
	// attach 首包：空快照
	snap := readBook(t, c, "snapshot")
	if len(snap.Bids) != 0 || len(snap.Asks) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestE2E_AddTradeCancelFlow(t *testing.T) {
	srv := newStack(t)
	_, url := newWSServer(t, srv)

	c := dial(t, url)
	readBook(t, c, "snapshot")

	// 挂买单 -> 全量 book
	writeJSON(t, c, map[string]any{"type": "add", "side": "buy", "price": 100.5, "qty": 1})
	bm := readBook(t, c, "book")
	if len(bm.Bids) != 1 || bm.Bids[0].Price != "100.5" || bm.Bids[0].Qty != "1" {
		t.Fatalf("unexpected book %+v", bm)
	}

	// 对手卖单成交：同一连接上先 trade 后 book
	writeJSON(t, c, map[string]any{"type": "add", "side": "sell", "price": 100.5, "qty": 1})
	typ, raw := readMsg(t, c)
	if typ != "trade" {
		t.Fatalf("expected trade before book, got %q (%s)", typ, raw)
	}
	var tm TradeMsg
	if err := json.Unmarshal(raw, &tm); err != nil {
		t.Fatalf("unmarshal trade: %v", err)
	}
	if len(tm.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %+v", tm.Trades)
	}
	tr := tm.Trades[0]
	if tr.Price != "100.5" || tr.Qty != "1" || tr.Maker != 1 || tr.Taker != 2 {
		t.Fatalf("unexpected trade %+v", tr)
	}
	bm = readBook(t, c, "book")
	if len(bm.Bids) != 0 || len(bm.Asks) != 0 {
		t.Fatalf("expected empty book after cross, got %+v", bm)
	}

	// 挂卖单再撤：book 更新两次
	writeJSON(t, c, map[string]any{"type": "add", "side": "sell", "price": 101, "qty": 2})
	bm = readBook(t, c, "book")
	if len(bm.Asks) != 1 || bm.Asks[0].Price != "101" {
		t.Fatalf("unexpected book %+v", bm)
	}
	writeJSON(t, c, map[string]any{"type": "cancel", "orderId": 3})
	bm = readBook(t, c, "book")
	if len(bm.Asks) != 0 {
		t.Fatalf("expected ask gone after cancel, got %+v", bm)
	}
}

func TestE2E_SecondSubscriberSeesCurrentBook(t *testing.T) {
	srv := newStack(t)
	_, url := newWSServer(t, srv)

	c1 := dial(t, url)
	readBook(t, c1, "snapshot")
	writeJSON(t, c1, map[string]any{"type": "add", "side": "buy", "price": 99.5, "qty": 3})
	readBook(t, c1, "book")

	// 新订阅者的快照要带上已有的簿
	c2 := dial(t, url)
	snap := readBook(t, c2, "snapshot")
	if len(snap.Bids) != 1 || snap.Bids[0].Price != "99.5" || snap.Bids[0].Qty != "3" {
		t.Fatalf("unexpected snapshot for second subscriber: %+v", snap)
	}

	// 广播对两个订阅者都到
	writeJSON(t, c1, map[string]any{"type": "add", "side": "buy", "price": 99, "qty": 1})
	bm1 := readBook(t, c1, "book")
	bm2 := readBook(t, c2, "book")
	if len(bm1.Bids) != 2 || len(bm2.Bids) != 2 {
		t.Fatalf("broadcast mismatch: %+v vs %+v", bm1, bm2)
	}
}

func TestE2E_MalformedAndInvalidIgnored(t *testing.T) {
	srv := newStack(t)
	_, url := newWSServer(t, srv)

	c := dial(t, url)
	readBook(t, c, "snapshot")

	// 坏 JSON、坏 side、零量、不在格点上的价：都挡在边界，连接保留
	if err := c.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	writeJSON(t, c, map[string]any{"type": "add", "side": "hold", "price": 100, "qty": 1})
	writeJSON(t, c, map[string]any{"type": "add", "side": "buy", "price": 100, "qty": 0})
	writeJSON(t, c, map[string]any{"type": "add", "side": "buy", "price": 100.005, "qty": 1})
	writeJSON(t, c, map[string]any{"type": "cancel", "orderId": 12345})

	// 再发一笔合法的：它的 book 更新是下一条出站消息
	writeJSON(t, c, map[string]any{"type": "add", "side": "buy", "price": 100, "qty": 1})
	bm := readBook(t, c, "book")
	if len(bm.Bids) != 1 || bm.Bids[0].Price != "100" || bm.Bids[0].Qty != "1" {
		t.Fatalf("unexpected book %+v", bm)
	}
}
