package domain

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "domain")

// ErrBookNotFound signals an incremental op for a symbol that never
// received a snapshot, or whose book was dropped.
var ErrBookNotFound = errors.New("order book not initialized for symbol")

// OrderBook owns one ladder per symbol and applies decoded snapshot and
// incremental operations to them. Each ladder carries its own lock, so
// traffic on one symbol never blocks another. A best-of-book change on
// any symbol is reported through the onQuote callback, exactly once per
// mutating operation.
type OrderBook struct {
	mu      sync.RWMutex
	ladders map[string]*Ladder
	version uint64

	onQuote func(Quote)
}

func NewOrderBook(onQuote func(Quote)) *OrderBook {
	return &OrderBook{
		ladders: make(map[string]*Ladder),
		onQuote: onQuote,
	}
}

// ApplySnapshot fully replaces the symbol's ladder. The ladder is
// created on the first snapshot and rebuilt on any later one. A single
// quote notification is emitted for the final state, regardless of how
// many entries the snapshot carried.
func (b *OrderBook) ApplySnapshot(symbol string, entries []BookEntry) {
	ladder := b.ladder(symbol, true)
	quote := ladder.ReplaceAll(entries)
	atomic.AddUint64(&b.version, 1)
	b.emit(quote)
}

// ApplyIncremental applies one insert/update/delete against the live
// ladder. A quote notification is emitted only when the operation moved
// either side's best. An unknown id surfaces as ErrLevelNotFound scoped
// to this one message; the ladder itself stays intact.
func (b *OrderBook) ApplyIncremental(symbol string, action BookAction, entry BookEntry) error {
	ladder := b.ladder(symbol, false)
	if ladder == nil {
		return ErrBookNotFound
	}

	var (
		quote   Quote
		changed bool
		err     error
	)

	switch action {
	case ActionInsert:
		quote, changed = ladder.Insert(entry)
	case ActionUpdate:
		quote, changed, err = ladder.Update(entry)
	case ActionDelete:
		quote, changed, err = ladder.Delete(entry.ID)
	}
	if err != nil {
		return err
	}

	atomic.AddUint64(&b.version, 1)
	if changed {
		b.emit(quote)
	}
	return nil
}

// Clear empties the symbol's ladder ahead of a re-snapshot.
func (b *OrderBook) Clear(symbol string) {
	if ladder := b.ladder(symbol, false); ladder != nil {
		ladder.Clear()
		atomic.AddUint64(&b.version, 1)
	}
}

// Drop destroys the symbol's ladder on unsubscribe or disconnect.
func (b *OrderBook) Drop(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.ladders, symbol)
}

func (b *OrderBook) TopOfBook(symbol string) (Quote, bool) {
	ladder := b.ladder(symbol, false)
	if ladder == nil {
		return Quote{}, false
	}
	return ladder.TopOfBook(), true
}

// Version counts structural mutations across all symbols.
func (b *OrderBook) Version() uint64 {
	return atomic.LoadUint64(&b.version)
}

func (b *OrderBook) ladder(symbol string, create bool) *Ladder {
	b.mu.RLock()
	ladder, ok := b.ladders[symbol]
	b.mu.RUnlock()
	if ok || !create {
		return ladder
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if ladder, ok = b.ladders[symbol]; ok {
		return ladder
	}
	ladder = NewLadder(symbol)
	b.ladders[symbol] = ladder
	return ladder
}

func (b *OrderBook) emit(q Quote) {
	if b.onQuote != nil {
		b.onQuote(q)
	}
}
