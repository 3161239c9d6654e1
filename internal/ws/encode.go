package ws

import (
	"encoding/json"

	"limitbook.com/internal/book"
)

// Codec 把核心的快照/成交编码成线上 payload。
type Codec struct {
	conv *Converter
}

func NewCodec(conv *Converter) *Codec { return &Codec{conv: conv} }

// EncodeBook typ 是 "snapshot" 或 "book"，两者 shape 相同。
// 空侧编码成 []，不是 null。
func (c *Codec) EncodeBook(typ string, snap book.Snapshot) []byte {
	msg := BookMsg{
		Type: typ,
		Bids: make([]LevelDTO, 0, len(snap.Bids)),
		Asks: make([]LevelDTO, 0, len(snap.Asks)),
	}
	for _, lv := range snap.Bids {
		msg.Bids = append(msg.Bids, LevelDTO{
			Price: c.conv.PriceNumber(lv.Price),
			Qty:   c.conv.QtyNumber(lv.Qty),
		})
	}
	for _, lv := range snap.Asks {
		msg.Asks = append(msg.Asks, LevelDTO{
			Price: c.conv.PriceNumber(lv.Price),
			Qty:   c.conv.QtyNumber(lv.Qty),
		})
	}
	b, _ := json.Marshal(msg)
	return b
}

func (c *Codec) EncodeTrades(trades []book.Trade) []byte {
	msg := TradeMsg{
		Type:   "trade",
		Trades: make([]TradeDTO, 0, len(trades)),
	}
	for _, t := range trades {
		msg.Trades = append(msg.Trades, TradeDTO{
			Price: c.conv.PriceNumber(t.Price),
			Qty:   c.conv.QtyNumber(t.Qty),
			Maker: t.MakerID,
			Taker: t.TakerID,
		})
	}
	b, _ := json.Marshal(msg)
	return b
}
