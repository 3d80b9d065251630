package domain

import (
	"sync"

	"github.com/gammazero/deque"
)

// maxFinalized bounds the terminal-order dedupe set. Evicted ids lose
// late-event suppression, but their correlation entries are long gone
// by then, so stray events for them resolve to nothing anyway.
const maxFinalized = 4096

// OrderCorrelator resolves exchange-assigned broker ids back to local
// orders and reconciles the cancel/fill pair that some exchanges emit
// in either order for the same order.
//
// Its lock is independent of the ladder locks: order-management traffic
// never contends with market-data-heavy symbols.
type OrderCorrelator struct {
	mu           sync.Mutex
	byBroker     map[string]int
	byLocal      map[int][]string
	tickets      map[int]*OrderTicket
	pendingClose map[string]struct{}

	finalized      map[string]struct{}
	finalizedOrder deque.Deque[string]

	ledger OrderLedger
}

func NewOrderCorrelator(ledger OrderLedger) *OrderCorrelator {
	return &OrderCorrelator{
		byBroker:     make(map[string]int),
		byLocal:      make(map[int][]string),
		tickets:      make(map[int]*OrderTicket),
		pendingClose: make(map[string]struct{}),
		finalized:    make(map[string]struct{}),
		ledger:       ledger,
	}
}

// Record attaches a broker id to a local order. The submission path
// calls this before the stream gate reopens, so no stream event for
// this broker id can be dispatched earlier.
func (c *OrderCorrelator) Record(localOrderID int, brokerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byBroker[brokerID] = localOrderID
	c.byLocal[localOrderID] = append(c.byLocal[localOrderID], brokerID)
}

// Resolve maps a broker id to a local order, falling back to the
// authoritative ledger on a miss. A miss after the fallback means the
// order belongs to another session and is not an error.
func (c *OrderCorrelator) Resolve(brokerID string) (int, bool) {
	c.mu.Lock()
	localID, ok := c.byBroker[brokerID]
	c.mu.Unlock()
	if ok {
		return localID, true
	}
	if c.ledger == nil {
		return 0, false
	}
	return c.ledger.LookupOrder(brokerID)
}

// ObserveFill reports whether a fill event should be emitted for the
// broker id. A fill supersedes a pending close, so any close parked for
// this id is discarded. A terminal fill finalizes the order; events
// arriving after finalization are suppressed.
func (c *OrderCorrelator) ObserveFill(brokerID string, terminal bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, done := c.finalized[brokerID]; done {
		return false
	}
	delete(c.pendingClose, brokerID)
	if terminal {
		c.finalize(brokerID)
	}
	return true
}

// ObserveClose reports whether a terminal cancel event should be
// emitted now. When the exchange's close notification may still be
// followed by a fill for the same order (fillPossible), the id is
// parked in the pending-close set instead and no cancel goes out: if
// the fill arrives it wins, and if it never does the parked close is
// the order's final state.
func (c *OrderCorrelator) ObserveClose(brokerID string, fillPossible bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, done := c.finalized[brokerID]; done {
		return false
	}
	if fillPossible {
		c.pendingClose[brokerID] = struct{}{}
		return false
	}
	c.finalize(brokerID)
	return true
}

// RecordTicket is Record plus retention of the submitted ticket, which
// lets the gateway tell a full fill from a partial one on exchanges
// whose fill notifications carry no status.
func (c *OrderCorrelator) RecordTicket(ticket *OrderTicket, brokerID string) {
	c.Record(ticket.LocalOrderID, brokerID)
	c.mu.Lock()
	c.tickets[ticket.LocalOrderID] = ticket
	c.mu.Unlock()
}

// Ticket returns the retained ticket for a local order, if any.
func (c *OrderCorrelator) Ticket(localOrderID int) (*OrderTicket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tickets[localOrderID]
	return t, ok
}

// BrokerIDs returns the broker ids attached to a local order so far.
func (c *OrderCorrelator) BrokerIDs(localOrderID int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.byLocal[localOrderID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// PendingClose reports whether the broker id has a close parked and
// not yet superseded by a fill.
func (c *OrderCorrelator) PendingClose(brokerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pendingClose[brokerID]
	return ok
}

// finalize records the terminal state and drops the correlation entry;
// the caller holds c.mu. The dedupe set is bounded: the oldest terminal
// id falls out once the ceiling is reached.
func (c *OrderCorrelator) finalize(brokerID string) {
	if _, ok := c.finalized[brokerID]; !ok {
		c.finalized[brokerID] = struct{}{}
		c.finalizedOrder.PushBack(brokerID)
		for c.finalizedOrder.Len() > maxFinalized {
			delete(c.finalized, c.finalizedOrder.PopFront())
		}
	}
	delete(c.pendingClose, brokerID)

	localID, ok := c.byBroker[brokerID]
	if !ok {
		return
	}
	for _, id := range c.byLocal[localID] {
		delete(c.byBroker, id)
	}
	delete(c.byLocal, localID)
	delete(c.byBroker, brokerID)
	delete(c.tickets, localID)
}
