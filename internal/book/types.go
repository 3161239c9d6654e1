package book

import "time"

// 买卖方向
const (
	Buy Side = iota + 1
	Sell
)

type Side uint8

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return "unknown"
}

// Order 一笔限价委托：身份不可变，成交状态可变。
// Price 是 tick 整数价，核心里不碰浮点（小数转换在 transport 边界做）。
type Order struct {
	ID           uint64
	Side         Side
	Price        int64
	InitialQty   int64
	RemainingQty int64
	ArrivalSeq   uint64 // 出队时由 engine 分配，同价位按它排队
}

func (o *Order) Filled() bool { return o.RemainingQty == 0 }

// Trade 每次 fill 产生一条；maker 是簿内挂单，taker 是进来的单。
type Trade struct {
	Price   int64
	Qty     int64
	MakerID uint64
	TakerID uint64
	Ts      time.Time
}

// LevelInfo 单个价位的聚合量（不暴露单笔订单）
type LevelInfo struct {
	Price int64
	Qty   int64
}

// Snapshot 两侧都按 best-first 排列：bids 价高在前，asks 价低在前。
type Snapshot struct {
	Bids []LevelInfo
	Asks []LevelInfo
}
