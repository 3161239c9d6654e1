package book

import "fmt"

// Validate 全量校验簿的结构不变量。违反说明核心有 bug，调用方应当 fatal。
// O(N)，只在自检开关或测试里跑，不在热路径上。
func (b *Book) Validate() error {
	seen := 0

	check := func(side Side, levels map[int64]*priceLevel) error {
		for price, lv := range levels {
			if lv == nil || lv.empty() {
				return fmt.Errorf("%v level %d is empty but still mapped", side, price)
			}
			if lv.price != price {
				return fmt.Errorf("%v level keyed %d but carries price %d", side, price, lv.price)
			}
			var sum int64
			var lastSeq uint64
			for n := lv.head; n != nil; n = n.next {
				o := n.order
				if o.Side != side {
					return fmt.Errorf("order %d: side %v resting on %v level", o.ID, o.Side, side)
				}
				if o.Price != price {
					return fmt.Errorf("order %d: price %d resting on level %d", o.ID, o.Price, price)
				}
				if o.RemainingQty <= 0 {
					return fmt.Errorf("order %d: remaining %d resting in queue", o.ID, o.RemainingQty)
				}
				if o.RemainingQty > o.InitialQty {
					return fmt.Errorf("order %d: remaining %d exceeds initial %d", o.ID, o.RemainingQty, o.InitialQty)
				}
				if lastSeq != 0 && o.ArrivalSeq <= lastSeq {
					return fmt.Errorf("order %d: arrival seq %d not increasing after %d", o.ID, o.ArrivalSeq, lastSeq)
				}
				lastSeq = o.ArrivalSeq
				idx := b.byID[o.ID]
				if idx == nil {
					return fmt.Errorf("order %d: resting but missing from index", o.ID)
				}
				if idx != n {
					return fmt.Errorf("order %d: index points at a different node", o.ID)
				}
				sum += o.RemainingQty
				seen++
			}
			if sum != lv.total {
				return fmt.Errorf("%v level %d: total %d != sum of queue %d", side, price, lv.total, sum)
			}
		}
		return nil
	}

	if err := check(Buy, b.bids); err != nil {
		return err
	}
	if err := check(Sell, b.asks); err != nil {
		return err
	}

	// 索引里不能有悬挂项
	if seen != len(b.byID) {
		return fmt.Errorf("index holds %d entries but queues hold %d orders", len(b.byID), seen)
	}

	// 静止簿不能交叉
	if b.hasBid && b.hasAsk && b.bestBid >= b.bestAsk {
		return fmt.Errorf("book crossed at rest: best bid %d >= best ask %d", b.bestBid, b.bestAsk)
	}

	// best 缓存与实际一致
	if err := b.checkBest(Buy); err != nil {
		return err
	}
	return b.checkBest(Sell)
}

func (b *Book) checkBest(side Side) error {
	levels, cached, has := b.bids, b.bestBid, b.hasBid
	if side == Sell {
		levels, cached, has = b.asks, b.bestAsk, b.hasAsk
	}
	if len(levels) == 0 {
		if has {
			return fmt.Errorf("%v best cached %d but side is empty", side, cached)
		}
		return nil
	}
	if !has {
		return fmt.Errorf("%v side non-empty but best not cached", side)
	}
	first := true
	var want int64
	for p := range levels {
		if first || (side == Buy && p > want) || (side == Sell && p < want) {
			want = p
			first = false
		}
	}
	if cached != want {
		return fmt.Errorf("%v best cached %d, actual %d", side, cached, want)
	}
	return nil
}
