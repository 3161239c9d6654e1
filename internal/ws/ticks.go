package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrOffGrid     = errors.New("ws: value not on tick grid")
	ErrNotPositive = errors.New("ws: value must be positive")
)

// Converter 十进制 <-> tick 的边界转换。核心只见整数，浮点在这里止步。
type Converter struct {
	tick decimal.Decimal // 最小价格增量，如 0.01
	step decimal.Decimal // 最小数量增量，如 0.001
}

func NewConverter(tickSize, qtyStep string) (*Converter, error) {
	tick, err := decimal.NewFromString(tickSize)
	if err != nil {
		return nil, fmt.Errorf("ws: bad tick size %q: %w", tickSize, err)
	}
	step, err := decimal.NewFromString(qtyStep)
	if err != nil {
		return nil, fmt.Errorf("ws: bad qty step %q: %w", qtyStep, err)
	}
	if tick.Sign() <= 0 || step.Sign() <= 0 {
		return nil, fmt.Errorf("ws: tick size and qty step must be positive")
	}
	return &Converter{tick: tick, step: step}, nil
}

// PriceToTicks 把客户端价格换成 tick 整数。必须是正数且落在格点上。
func (c *Converter) PriceToTicks(p decimal.Decimal) (int64, error) {
	return toUnits(p, c.tick)
}

// QtyToUnits 把客户端数量换成 step 整数。
func (c *Converter) QtyToUnits(q decimal.Decimal) (int64, error) {
	return toUnits(q, c.step)
}

func toUnits(v, unit decimal.Decimal) (int64, error) {
	if v.Sign() <= 0 {
		return 0, ErrNotPositive
	}
	n := v.Div(unit)
	if !n.IsInteger() {
		return 0, ErrOffGrid
	}
	return n.IntPart(), nil
}

// PriceNumber tick 整数还原成线上的十进制数。
func (c *Converter) PriceNumber(ticks int64) json.Number {
	return json.Number(decimal.NewFromInt(ticks).Mul(c.tick).String())
}

func (c *Converter) QtyNumber(units int64) json.Number {
	return json.Number(decimal.NewFromInt(units).Mul(c.step).String())
}
