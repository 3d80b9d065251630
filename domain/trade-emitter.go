package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeTick is one timestamped last-trade record for the host.
type TradeTick struct {
	Symbol string
	Price  decimal.Decimal
	Size   decimal.Decimal
	Time   time.Time
}

// TradeEmitter buffers trade ticks the same way QuoteEmitter buffers
// top-of-book ticks.
type TradeEmitter struct {
	buf TickBuffer[TradeTick]
}

func NewTradeEmitter() *TradeEmitter {
	return &TradeEmitter{}
}

func (e *TradeEmitter) Emit(t TradeEntry) {
	e.buf.Append(TradeTick{
		Symbol: t.Symbol,
		Price:  t.Price,
		Size:   t.Size.Abs(),
		Time:   t.Time,
	})
}

func (e *TradeEmitter) Drain() []TradeTick {
	return e.buf.Drain()
}

func (e *TradeEmitter) Len() int {
	return e.buf.Len()
}
