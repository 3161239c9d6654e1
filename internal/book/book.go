package book

import (
	"sort"
	"time"
)

// Book 单一标的的限价订单簿。
// 非线程安全：engine 的 worker 独占它（单写者），外部只能通过 engine 访问。
type Book struct {
	asks map[int64]*priceLevel // 卖盘：price -> level
	bids map[int64]*priceLevel // 买盘：price -> level
	byID map[uint64]*levelNode // 订单索引：orderID -> node（撤单 O(1)）

	bestAsk int64
	bestBid int64
	hasAsk  bool
	hasBid  bool // 有没有对应盘（避免 0 值歧义）
}

func New() *Book {
	return &Book{
		asks: make(map[int64]*priceLevel, 1024),
		bids: make(map[int64]*priceLevel, 1024),
		byID: make(map[uint64]*levelNode, 1024),
	}
}

// ApplyIncoming 撮合一笔进来的限价单：先吃对手盘，吃不完的残量挂回本方。
// 返回按产生顺序排列的成交列表。重复 id 返回 ErrDuplicateID，簿不变。
func (b *Book) ApplyIncoming(taker *Order) ([]Trade, error) {
	if taker == nil || taker.RemainingQty <= 0 || (taker.Side != Buy && taker.Side != Sell) {
		return nil, ErrInvalidOrder
	}
	if _, exists := b.byID[taker.ID]; exists {
		return nil, ErrDuplicateID
	}

	var trades []Trade
	if taker.Side == Buy {
		trades = b.matchBuy(taker)
	} else {
		trades = b.matchSell(taker)
	}

	// taker 没吃完：挂单入簿（变成 maker）
	if taker.RemainingQty > 0 {
		b.rest(taker)
	}
	return trades, nil
}

func (b *Book) matchBuy(taker *Order) []Trade {
	trades := make([]Trade, 0, 8)
	for taker.RemainingQty > 0 {
		if !b.hasAsk {
			break
		}
		// 价格闸：买单只吃 <= 限价的卖盘，等价也成交
		if taker.Price < b.bestAsk {
			break
		}
		lv := b.asks[b.bestAsk]
		if lv == nil || lv.empty() {
			// best 失效时自愈一次
			b.recomputeBestAsk()
			continue
		}
		// 桶内从队头开始吃，FIFO
		for taker.RemainingQty > 0 && !lv.empty() {
			mn := lv.head
			maker := mn.order

			exec := min64(taker.RemainingQty, maker.RemainingQty)
			trades = append(trades, Trade{
				Price:   lv.price,
				Qty:     exec,
				MakerID: maker.ID,
				TakerID: taker.ID,
				Ts:      time.Now(),
			})

			taker.RemainingQty -= exec
			maker.RemainingQty -= exec
			lv.total -= exec

			if maker.Filled() {
				lv.remove(mn)
				delete(b.byID, maker.ID)
			}
		}
		if lv.empty() {
			delete(b.asks, lv.price)
			b.recomputeBestAsk()
		}
	}
	return trades
}

func (b *Book) matchSell(taker *Order) []Trade {
	trades := make([]Trade, 0, 8)
	for taker.RemainingQty > 0 {
		if !b.hasBid {
			break
		}
		// 卖单只吃 >= 限价的买盘
		if b.bestBid < taker.Price {
			break
		}
		lv := b.bids[b.bestBid]
		if lv == nil || lv.empty() {
			b.recomputeBestBid()
			continue
		}
		for taker.RemainingQty > 0 && !lv.empty() {
			mn := lv.head
			maker := mn.order

			exec := min64(taker.RemainingQty, maker.RemainingQty)
			trades = append(trades, Trade{
				Price:   lv.price,
				Qty:     exec,
				MakerID: maker.ID,
				TakerID: taker.ID,
				Ts:      time.Now(),
			})

			taker.RemainingQty -= exec
			maker.RemainingQty -= exec
			lv.total -= exec

			if maker.Filled() {
				lv.remove(mn)
				delete(b.byID, maker.ID)
			}
		}
		if lv.empty() {
			delete(b.bids, lv.price)
			b.recomputeBestBid()
		}
	}
	return trades
}

// rest 把残量挂到本方价位桶队尾，并建立撤单索引。
func (b *Book) rest(o *Order) {
	side := b.bids
	if o.Side == Sell {
		side = b.asks
	}
	lv := side[o.Price]
	if lv == nil {
		lv = &priceLevel{price: o.Price}
		side[o.Price] = lv
	}
	n := &levelNode{order: o, lv: lv}
	lv.pushBack(n)
	b.byID[o.ID] = n

	if o.Side == Sell {
		if !b.hasAsk || o.Price < b.bestAsk {
			b.bestAsk = o.Price
			b.hasAsk = true
		}
	} else {
		if !b.hasBid || o.Price > b.bestBid {
			b.bestBid = o.Price
			b.hasBid = true
		}
	}
}

// Cancel 撤单：byID O(1) 定位，链表 O(1) 摘链。
// id 不在簿里返回 false，这不算错误。
func (b *Book) Cancel(orderID uint64) bool {
	n := b.byID[orderID]
	if n == nil {
		return false
	}

	lv := n.lv
	lv.total -= n.order.RemainingQty
	lv.remove(n)
	delete(b.byID, orderID)

	if lv.empty() {
		if n.order.Side == Sell {
			delete(b.asks, lv.price)
			// 只有删掉的是 best 桶才需要重算
			if b.hasAsk && lv.price == b.bestAsk {
				b.recomputeBestAsk()
			}
		} else {
			delete(b.bids, lv.price)
			if b.hasBid && lv.price == b.bestBid {
				b.recomputeBestBid()
			}
		}
	}
	return true
}

// BestAsk 当前最优卖价（最低价）
func (b *Book) BestAsk() (price int64, ok bool) {
	if !b.hasAsk {
		return 0, false
	}
	return b.bestAsk, true
}

// BestBid 当前最优买价（最高价）
func (b *Book) BestBid() (price int64, ok bool) {
	if !b.hasBid {
		return 0, false
	}
	return b.bestBid, true
}

// Orders 簿内挂单笔数
func (b *Book) Orders() int { return len(b.byID) }

// Snapshot 两侧按 best-first 聚合。只读，返回的切片与簿无共享。
func (b *Book) Snapshot() Snapshot {
	var s Snapshot
	s.Bids = make([]LevelInfo, 0, len(b.bids))
	for p, lv := range b.bids {
		s.Bids = append(s.Bids, LevelInfo{Price: p, Qty: lv.total})
	}
	sort.Slice(s.Bids, func(i, j int) bool { return s.Bids[i].Price > s.Bids[j].Price })

	s.Asks = make([]LevelInfo, 0, len(b.asks))
	for p, lv := range b.asks {
		s.Asks = append(s.Asks, LevelInfo{Price: p, Qty: lv.total})
	}
	sort.Slice(s.Asks, func(i, j int) bool { return s.Asks[i].Price < s.Asks[j].Price })
	return s
}

func (b *Book) recomputeBestAsk() {
	first := true
	var best int64
	for p, lv := range b.asks {
		if lv == nil || lv.empty() {
			continue
		}
		if first || p < best {
			best = p
			first = false
		}
	}
	if first {
		b.hasAsk = false
		b.bestAsk = 0
		return
	}
	b.hasAsk = true
	b.bestAsk = best
}

func (b *Book) recomputeBestBid() {
	first := true
	var best int64
	for p, lv := range b.bids {
		if lv == nil || lv.empty() {
			continue
		}
		if first || p > best {
			best = p
			first = false
		}
	}
	if first {
		b.hasBid = false
		b.bestBid = 0
		return
	}
	b.hasBid = true
	b.bestBid = best
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
