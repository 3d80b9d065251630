package domain

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

var ErrLevelNotFound = errors.New("price level not found")

// Ladder is the bid/ask structure of a single symbol. Levels are keyed
// by their exchange-assigned id, which is shared between both sides:
// a level belongs to exactly one side at a time.
//
// The best of each side is cached so the common case stays O(1). A full
// rescan of a side happens only when the cached best itself is mutated
// or removed.
type Ladder struct {
	mu     sync.Mutex
	symbol string

	bids map[string]*PriceLevel
	asks map[string]*PriceLevel

	bestBid *PriceLevel
	bestAsk *PriceLevel
}

func NewLadder(symbol string) *Ladder {
	return &Ladder{
		symbol: symbol,
		bids:   make(map[string]*PriceLevel),
		asks:   make(map[string]*PriceLevel),
	}
}

// ReplaceAll clears both sides and installs the snapshot entries,
// atomically with respect to TopOfBook readers. The returned quote
// reflects the final state of both sides.
func (l *Ladder) ReplaceAll(entries []BookEntry) Quote {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.bids = make(map[string]*PriceLevel, len(entries))
	l.asks = make(map[string]*PriceLevel, len(entries))
	l.bestBid = nil
	l.bestAsk = nil

	for _, e := range entries {
		if _, ok := l.lookup(e.ID); ok {
			continue
		}
		l.file(&PriceLevel{ID: e.ID, Side: e.Side, Price: e.Price, Size: e.Size})
	}

	l.bestBid = l.scanBest(SideBid)
	l.bestAsk = l.scanBest(SideAsk)
	return l.quote()
}

// Insert adds a new level. A duplicate id is a no-op, so re-applied
// inserts are harmless.
func (l *Ladder) Insert(e BookEntry) (Quote, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.lookup(e.ID); ok {
		return l.quote(), false
	}

	lvl := &PriceLevel{ID: e.ID, Side: e.Side, Price: e.Price, Size: e.Size}
	l.file(lvl)
	return l.quote(), l.promote(lvl)
}

// Update sets a new size on an existing level. A zero size removes the
// level. If the exchange reports the level under the opposite side, the
// level is re-filed there first: an id never rests on both sides.
func (l *Ladder) Update(e BookEntry) (Quote, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lvl, ok := l.lookup(e.ID)
	if !ok {
		return l.quote(), false, ErrLevelNotFound
	}

	if e.Size.IsZero() {
		return l.quote(), l.unfile(lvl), nil
	}

	changed := false
	if lvl.Side != e.Side {
		changed = l.unfile(lvl)
		lvl = &PriceLevel{ID: lvl.ID, Side: e.Side, Price: lvl.Price, Size: e.Size}
		l.file(lvl)
		if l.promote(lvl) {
			changed = true
		}
		return l.quote(), changed, nil
	}

	sizeChanged := !lvl.Size.Equal(e.Size)
	lvl.Size = e.Size
	// A level that rested with zero size counts toward the best only
	// once it regains size, so the update may newly beat the cache.
	if l.promote(lvl) {
		changed = true
	} else if sizeChanged && l.isBest(lvl) {
		changed = true
	}
	return l.quote(), changed, nil
}

// Delete removes a level from whichever side holds it.
func (l *Ladder) Delete(id string) (Quote, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lvl, ok := l.lookup(id)
	if !ok {
		return l.quote(), false, ErrLevelNotFound
	}
	changed := l.unfile(lvl)
	return l.quote(), changed, nil
}

// Clear drops every level on both sides and resets the best caches.
func (l *Ladder) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.bids = make(map[string]*PriceLevel)
	l.asks = make(map[string]*PriceLevel)
	l.bestBid = nil
	l.bestAsk = nil
}

func (l *Ladder) TopOfBook() Quote {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.quote()
}

func (l *Ladder) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bids) + len(l.asks)
}

func (l *Ladder) lookup(id string) (*PriceLevel, bool) {
	if lvl, ok := l.bids[id]; ok {
		return lvl, true
	}
	if lvl, ok := l.asks[id]; ok {
		return lvl, true
	}
	return nil, false
}

func (l *Ladder) side(s Side) map[string]*PriceLevel {
	if s == SideBid {
		return l.bids
	}
	return l.asks
}

func (l *Ladder) file(lvl *PriceLevel) {
	l.side(lvl.Side)[lvl.ID] = lvl
}

// unfile removes a level and reports whether the side's best changed.
// Removing the cached best is the only O(n) path: the side is rescanned
// to find the new best.
func (l *Ladder) unfile(lvl *PriceLevel) bool {
	delete(l.side(lvl.Side), lvl.ID)

	if !l.isBest(lvl) {
		return false
	}
	if lvl.Side == SideBid {
		l.bestBid = l.scanBest(SideBid)
	} else {
		l.bestAsk = l.scanBest(SideAsk)
	}
	return true
}

// promote updates a side's best cache in O(1) if the level beats it.
func (l *Ladder) promote(lvl *PriceLevel) bool {
	if lvl.Size.IsZero() {
		return false
	}
	best := l.best(lvl.Side)
	if best != nil && !outbids(lvl.Price, best.Price, lvl.Side) {
		return false
	}
	if lvl.Side == SideBid {
		l.bestBid = lvl
	} else {
		l.bestAsk = lvl
	}
	return true
}

func (l *Ladder) best(s Side) *PriceLevel {
	if s == SideBid {
		return l.bestBid
	}
	return l.bestAsk
}

func (l *Ladder) isBest(lvl *PriceLevel) bool {
	return l.best(lvl.Side) == lvl
}

func (l *Ladder) scanBest(s Side) *PriceLevel {
	var best *PriceLevel
	for _, lvl := range l.side(s) {
		if lvl.Size.IsZero() {
			continue
		}
		if best == nil || outbids(lvl.Price, best.Price, s) {
			best = lvl
		}
	}
	return best
}

// outbids reports whether price a strictly beats price b on the given
// side: higher on bids, lower on asks.
func outbids(a, b decimal.Decimal, s Side) bool {
	if s == SideBid {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

func (l *Ladder) quote() Quote {
	q := Quote{Symbol: l.symbol}
	if l.bestBid != nil {
		q.HasBid = true
		q.BidPrice = l.bestBid.Price
		q.BidSize = l.bestBid.Size.Abs()
	}
	if l.bestAsk != nil {
		q.HasAsk = true
		q.AskPrice = l.bestAsk.Price
		q.AskSize = l.bestAsk.Size.Abs()
	}
	return q
}
