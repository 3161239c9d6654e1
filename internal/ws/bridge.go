package ws

import (
	"limitbook.com/internal/book"
)

// Bridge engine.EventSink 的实现：把撮合结果编码成线上消息交给 hub。
// 回调跑在 engine worker 上，这里只编码 + 入队；真正的网络写
// 发生在各连接的 writePump 上，不会饿着撮合。
type Bridge struct {
	hub   *Hub
	codec *Codec
}

func NewBridge(hub *Hub, codec *Codec) *Bridge {
	return &Bridge{hub: hub, codec: codec}
}

func (b *Bridge) OnTrades(trades []book.Trade) {
	b.hub.Broadcast(b.codec.EncodeTrades(trades))
}

func (b *Bridge) OnBookChanged(snap book.Snapshot) {
	b.hub.Broadcast(b.codec.EncodeBook("book", snap))
}
