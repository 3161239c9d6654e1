package book

import "errors"

var (
	// ErrDuplicateID 提交的订单 id 已经在簿里挂着；簿保持原样。
	ErrDuplicateID = errors.New("book: duplicate order id")
	// ErrInvalidOrder 数量/方向非法。transport 层应该挡住，这里兜底。
	ErrInvalidOrder = errors.New("book: invalid order")
)
