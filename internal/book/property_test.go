package book

import (
	"sort"
	"testing"

	"pgregory.net/rapid"
)

// 随机命令流下逐步校验 §结构不变量 + 量守恒。
// 模型和簿共享 *Order：RemainingQty 的变化两边都看得到。
func TestRandomOpsInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := New()
		var seq, nextID uint64
		resting := map[uint64]*Order{} // 模型认为在簿的订单
		filled := map[uint64]int64{}   // 每单累计成交
		initial := map[uint64]int64{}

		steps := rapid.IntRange(1, 200).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			doCancel := len(resting) > 0 && rapid.Bool().Draw(t, "doCancel")

			if doCancel {
				ids := make([]uint64, 0, len(resting))
				for id := range resting {
					ids = append(ids, id)
				}
				sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
				id := rapid.SampledFrom(ids).Draw(t, "cancelID")
				if !b.Cancel(id) {
					t.Fatalf("cancel of resting order %d returned false", id)
				}
				delete(resting, id)
			} else {
				nextID++
				seq++
				side := Buy
				if rapid.Bool().Draw(t, "sell") {
					side = Sell
				}
				price := rapid.Int64Range(90, 110).Draw(t, "price")
				qty := rapid.Int64Range(1, 20).Draw(t, "qty")

				o := &Order{
					ID: nextID, Side: side, Price: price,
					InitialQty: qty, RemainingQty: qty, ArrivalSeq: seq,
				}
				initial[o.ID] = qty

				trades, err := b.ApplyIncoming(o)
				if err != nil {
					t.Fatalf("submit %d: %v", o.ID, err)
				}
				for _, tr := range trades {
					if tr.TakerID != o.ID {
						t.Fatalf("taker %d is not the incoming order %d", tr.TakerID, o.ID)
					}
					if resting[tr.MakerID] == nil {
						t.Fatalf("maker %d was not resting", tr.MakerID)
					}
					// 成交价不能劣于 taker 限价
					if side == Buy && tr.Price > price {
						t.Fatalf("buy at %d filled at worse price %d", price, tr.Price)
					}
					if side == Sell && tr.Price < price {
						t.Fatalf("sell at %d filled at worse price %d", price, tr.Price)
					}
					filled[tr.MakerID] += tr.Qty
					filled[tr.TakerID] += tr.Qty
					if filled[tr.MakerID] > initial[tr.MakerID] {
						t.Fatalf("order %d overfilled: %d > %d", tr.MakerID, filled[tr.MakerID], initial[tr.MakerID])
					}
					if filled[tr.TakerID] > initial[tr.TakerID] {
						t.Fatalf("order %d overfilled: %d > %d", tr.TakerID, filled[tr.TakerID], initial[tr.TakerID])
					}
				}
				if o.RemainingQty > 0 {
					resting[o.ID] = o
				}
				for id, ro := range resting {
					if ro.RemainingQty == 0 {
						delete(resting, id)
					}
				}
			}

			if err := b.Validate(); err != nil {
				t.Fatalf("invariants after step %d: %v", i, err)
			}

			// 量守恒：模型剩量 == 簿聚合量
			var want int64
			for _, ro := range resting {
				want += ro.RemainingQty
			}
			var got int64
			s := b.Snapshot()
			for _, lv := range s.Bids {
				got += lv.Qty
			}
			for _, lv := range s.Asks {
				got += lv.Qty
			}
			if got != want {
				t.Fatalf("resting volume %d, model says %d", got, want)
			}
			if len(resting) != b.Orders() {
				t.Fatalf("resting count %d, model says %d", b.Orders(), len(resting))
			}

			if bb, ok := b.BestBid(); ok {
				if ba, ok2 := b.BestAsk(); ok2 && bb >= ba {
					t.Fatalf("book crossed at rest: %d >= %d", bb, ba)
				}
			}
		}
	})
}

// 价格相容性决定是否成交；成交价永远是 maker 的价。
func TestPriceCompatibility(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		restPrice := rapid.Int64Range(1, 10000).Draw(t, "restPrice")
		inPrice := rapid.Int64Range(1, 10000).Draw(t, "inPrice")
		qty := rapid.Int64Range(1, 100).Draw(t, "qty")
		incomingBuy := rapid.Bool().Draw(t, "incomingBuy")

		b := New()
		restSide, inSide := Buy, Sell
		shouldMatch := restPrice >= inPrice
		if incomingBuy {
			restSide, inSide = Sell, Buy
			shouldMatch = inPrice >= restPrice
		}

		if _, err := b.ApplyIncoming(&Order{
			ID: 1, Side: restSide, Price: restPrice,
			InitialQty: qty, RemainingQty: qty, ArrivalSeq: 1,
		}); err != nil {
			t.Fatalf("rest: %v", err)
		}
		trades, err := b.ApplyIncoming(&Order{
			ID: 2, Side: inSide, Price: inPrice,
			InitialQty: qty, RemainingQty: qty, ArrivalSeq: 2,
		})
		if err != nil {
			t.Fatalf("incoming: %v", err)
		}

		if shouldMatch && len(trades) == 0 {
			t.Fatalf("expected trade: rest %d vs incoming %d", restPrice, inPrice)
		}
		if !shouldMatch && len(trades) != 0 {
			t.Fatalf("unexpected trade: rest %d vs incoming %d: %+v", restPrice, inPrice, trades)
		}
		for _, tr := range trades {
			if tr.Price != restPrice {
				t.Fatalf("execution price %d != maker price %d", tr.Price, restPrice)
			}
		}
		if err := b.Validate(); err != nil {
			t.Fatalf("invariants: %v", err)
		}
	})
}
