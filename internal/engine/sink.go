package engine

import "limitbook.com/internal/book"

// EventSink 撮合结果的回调能力组，两个钩子都在 worker 协程上被调用：
// 先 OnTrades（有成交时），再 OnBookChanged。回调期间簿是静止的，
// OnBookChanged 直接拿到当前快照。钩子里禁止同步往 engine 回投命令
// （有界队列 + 递归 = 死锁），要投就先交给别的协程。
type EventSink interface {
	OnTrades(trades []book.Trade)
	OnBookChanged(snap book.Snapshot)
}

// NopSink 默认 sink，什么都不做。
type NopSink struct{}

func (NopSink) OnTrades([]book.Trade) {}

func (NopSink) OnBookChanged(book.Snapshot) {}

// SinkFuncs 用函数对组一个 sink，nil 的钩子跳过。测试里好用。
type SinkFuncs struct {
	Trades      func(trades []book.Trade)
	BookChanged func(snap book.Snapshot)
}

func (s SinkFuncs) OnTrades(trades []book.Trade) {
	if s.Trades != nil {
		s.Trades(trades)
	}
}

func (s SinkFuncs) OnBookChanged(snap book.Snapshot) {
	if s.BookChanged != nil {
		s.BookChanged(snap)
	}
}

// FanOutSink engine 只认识一个 sink；要多个观察者就用它包一层，
// worker 循环保持简单。
type FanOutSink []EventSink

func (f FanOutSink) OnTrades(trades []book.Trade) {
	for _, s := range f {
		s.OnTrades(trades)
	}
}

func (f FanOutSink) OnBookChanged(snap book.Snapshot) {
	for _, s := range f {
		s.OnBookChanged(snap)
	}
}
