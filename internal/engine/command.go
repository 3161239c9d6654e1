package engine

import "limitbook.com/internal/book"

// 命令是带标签的联合体：提交 / 撤单 / 快照 / 关停。
// 提交/撤单入队即返回，业务结果通过事件回调出去（不做同步等待）；
// 快照命令例外，调用方等 worker 通过 reply 回传。
type cmdType uint8

const (
	cmdSubmit cmdType = iota + 1
	cmdCancel
	cmdSnapshot
	cmdStop
)

type command struct {
	typ      cmdType
	order    book.Order         // cmdSubmit：ArrivalSeq 出队时才分配
	cancelID uint64             // cmdCancel
	reply    chan book.Snapshot // cmdSnapshot：cap 1，worker 写完即走
}
