package ws

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// 线上协议：所有消息带 type 判别字段。
// price/qty 在线上是十进制数，进核心前转成 tick 整数。

// ClientMsg 客户端入站：add / cancel 共用一个壳。
type ClientMsg struct {
	Type    string          `json:"type"`
	Side    string          `json:"side,omitempty"` // "buy" | "sell"
	Price   decimal.Decimal `json:"price,omitempty"`
	Qty     decimal.Decimal `json:"qty,omitempty"`
	OrderID uint64          `json:"orderId,omitempty"`
}

// LevelDTO 一档聚合量。json.Number 原样输出，保证是数字不是字符串。
type LevelDTO struct {
	Price json.Number `json:"price"`
	Qty   json.Number `json:"qty"`
}

// BookMsg type 为 "snapshot"（attach 首包）或 "book"（每次变更后全量）。
type BookMsg struct {
	Type string     `json:"type"`
	Bids []LevelDTO `json:"bids"`
	Asks []LevelDTO `json:"asks"`
}

type TradeDTO struct {
	Price json.Number `json:"price"`
	Qty   json.Number `json:"qty"`
	Maker uint64      `json:"maker"`
	Taker uint64      `json:"taker"`
}

// TradeMsg 一条撮合命令产生的全部成交，按生成顺序。
type TradeMsg struct {
	Type   string     `json:"type"` // "trade"
	Trades []TradeDTO `json:"trades"`
}
