package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// TickBuffer accumulates records from concurrent producers until the
// host drains it. Drain atomically swaps the backing slice out, so no
// record is lost or seen twice across the drain boundary.
type TickBuffer[T any] struct {
	mu    sync.Mutex
	items []T
}

func (b *TickBuffer[T]) Append(item T) {
	b.mu.Lock()
	b.items = append(b.items, item)
	b.mu.Unlock()
}

func (b *TickBuffer[T]) Drain() []T {
	b.mu.Lock()
	items := b.items
	b.items = nil
	b.mu.Unlock()
	return items
}

func (b *TickBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// QuoteTick is one timestamped top-of-book record for the host.
type QuoteTick struct {
	Symbol   string
	BidPrice decimal.Decimal
	BidSize  decimal.Decimal
	AskPrice decimal.Decimal
	AskSize  decimal.Decimal
	HasBid   bool
	HasAsk   bool
	Time     time.Time
}

// QuoteEmitter converts best-bid/ask changes into timestamped ticks.
// Appends are safe under concurrent symbol updates.
type QuoteEmitter struct {
	buf TickBuffer[QuoteTick]
	now func() time.Time
}

func NewQuoteEmitter() *QuoteEmitter {
	return &QuoteEmitter{now: time.Now}
}

func (e *QuoteEmitter) Emit(q Quote) {
	e.buf.Append(QuoteTick{
		Symbol:   q.Symbol,
		BidPrice: q.BidPrice,
		BidSize:  q.BidSize,
		AskPrice: q.AskPrice,
		AskSize:  q.AskSize,
		HasBid:   q.HasBid,
		HasAsk:   q.HasAsk,
		Time:     e.now().UTC(),
	})
}

func (e *QuoteEmitter) Drain() []QuoteTick {
	return e.buf.Drain()
}

func (e *QuoteEmitter) Len() int {
	return e.buf.Len()
}
