package engine

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"limitbook.com/internal/book"
)

var (
	// ErrEngineStopped Stop 之后再提交命令。
	ErrEngineStopped = errors.New("engine: stopped")
	// ErrEngineRunning 运行中不允许换 sink。
	ErrEngineRunning = errors.New("engine: already running")
)

type Config struct {
	QueueSize int  // mailbox 容量，满了之后生产者阻塞（背压）
	SelfCheck bool // 每条命令后跑 Book.Validate；违反直接 Fatal
}

// Engine 单写者命令管道：唯一会改 Book 的实体。
// 任意多个生产者 Submit/Cancel/Snapshot，一个 worker 按入队顺序应用，
// 每条命令的 sink 回调跑完才取下一条。
type Engine struct {
	bk  *book.Book
	cfg Config
	in  chan command

	mu      sync.Mutex
	running bool
	sink    EventSink

	stopped  atomic.Bool
	stopOnce sync.Once
	done     chan struct{} // worker 退出（或 stop-before-start）时关闭

	seq uint64 // arrival seq，worker 独占

	log *zap.Logger
}

func New(bk *book.Book, cfg Config, log *zap.Logger) *Engine {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 4096
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		bk:   bk,
		cfg:  cfg,
		in:   make(chan command, cfg.QueueSize),
		done: make(chan struct{}),
		sink: NopSink{},
		log:  log,
	}
}

// InstallSink 必须在 Start 之前调用；worker 起来之后不换。
func (e *Engine) InstallSink(s EventSink) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrEngineRunning
	}
	if s == nil {
		s = NopSink{}
	}
	e.sink = s
	return nil
}

// Start 拉起 worker。已在运行则 no-op；Stop 过的引擎不能再起。
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped.Load() {
		return ErrEngineStopped
	}
	if e.running {
		return nil
	}
	e.running = true
	// 不走 safe.Go：worker panic 说明核心不变量已破，必须崩给人看
	go e.run()
	return nil
}

// Stop 投递关停标记并等 worker 退出。可以多次调、可以并发调，
// 也可以在 Start 之前调（静默 no-op，只封住引擎）。
// 排在关停标记之前的命令都会被应用；赶在标记后面挤进队列的命令被
// 静默丢弃，Stop 返回后 Submit/Cancel 一律返回 ErrEngineStopped。
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		e.stopped.Store(true)
		running := e.running
		e.mu.Unlock()
		if running {
			e.in <- command{typ: cmdStop}
		} else {
			close(e.done)
		}
	})
	<-e.done
}

// Submit 入队一笔限价单。队列满时阻塞到有空位，绝不丢命令。
// 不等撮合结果——结果走 sink。
func (e *Engine) Submit(o book.Order) error {
	if e.stopped.Load() {
		return ErrEngineStopped
	}
	select {
	case e.in <- command{typ: cmdSubmit, order: o}:
		return nil
	case <-e.done:
		return ErrEngineStopped
	}
}

// Cancel 入队一笔撤单。id 不存在不算错误（worker 侧直接吸收）。
func (e *Engine) Cancel(orderID uint64) error {
	if e.stopped.Load() {
		return ErrEngineStopped
	}
	select {
	case e.in <- command{typ: cmdCancel, cancelID: orderID}:
		return nil
	case <-e.done:
		return ErrEngineStopped
	}
}

// Snapshot 同步读簿。走命令队列（和变更排进同一个全序），所以任何
// 生产者看到的快照都和应用顺序一致；worker 不在了就直接读（独占权
// 已结束）。Start 之前调用也直接读——那会儿还没有 worker 跟你抢。
func (e *Engine) Snapshot() book.Snapshot {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if !running {
		return e.bk.Snapshot()
	}

	reply := make(chan book.Snapshot, 1)
	select {
	case e.in <- command{typ: cmdSnapshot, reply: reply}:
	case <-e.done:
		return e.bk.Snapshot()
	}
	select {
	case snap := <-reply:
		return snap
	case <-e.done:
		// 请求排在了关停标记后面，worker 没回就走了
		return e.bk.Snapshot()
	}
}

func (e *Engine) run() {
	defer close(e.done)
	for {
		cmd := <-e.in
		queueDepth.Set(float64(len(e.in)))

		switch cmd.typ {
		case cmdStop:
			return

		case cmdSubmit:
			cmdTotal.WithLabelValues("submit").Inc()
			e.seq++
			o := cmd.order
			o.ArrivalSeq = e.seq
			trades, err := e.bk.ApplyIncoming(&o)
			if err != nil {
				// 客户端可能造成的错误：就地吸收，不动簿、不触发 sink
				reason := "invalid"
				if errors.Is(err, book.ErrDuplicateID) {
					reason = "duplicate_id"
				}
				rejectTotal.WithLabelValues(reason).Inc()
				e.log.Warn("submit dropped",
					zap.Uint64("order_id", o.ID),
					zap.Error(err))
				break
			}
			if len(trades) > 0 {
				tradesTotal.Add(float64(len(trades)))
				for _, t := range trades {
					tradeQtyTotal.Add(float64(t.Qty))
				}
				e.sink.OnTrades(trades)
			}
			// 限价单语义下 apply 成功必然改簿：要么成交、要么挂单、或两者都有
			e.sink.OnBookChanged(e.bk.Snapshot())
			restingOrders.Set(float64(e.bk.Orders()))

		case cmdCancel:
			cmdTotal.WithLabelValues("cancel").Inc()
			if e.bk.Cancel(cmd.cancelID) {
				e.sink.OnBookChanged(e.bk.Snapshot())
				restingOrders.Set(float64(e.bk.Orders()))
			} else {
				rejectTotal.WithLabelValues("unknown_cancel").Inc()
			}

		case cmdSnapshot:
			cmdTotal.WithLabelValues("snapshot").Inc()
			cmd.reply <- e.bk.Snapshot()
		}

		if e.cfg.SelfCheck {
			if err := e.bk.Validate(); err != nil {
				// 不变量是契约不是输入：破了立刻死，绝不吞
				e.log.Fatal("book invariant violated", zap.Error(err))
			}
		}
	}
}
