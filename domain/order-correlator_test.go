package domain_test

import (
	"strconv"
	"testing"

	"github.com/spooky-finn/go-broker-bridge/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLedger struct {
	orders map[string]int
}

func (l *stubLedger) LookupOrder(brokerID string) (int, bool) {
	id, ok := l.orders[brokerID]
	return id, ok
}

func TestOrderCorrelator_Resolve(t *testing.T) {
	c := domain.NewOrderCorrelator(nil)
	c.Record(7, "bfx-1")

	localID, ok := c.Resolve("bfx-1")
	require.True(t, ok)
	assert.Equal(t, 7, localID)

	_, ok = c.Resolve("bfx-2")
	assert.False(t, ok)
}

func TestOrderCorrelator_ResolveFallsBackToLedger(t *testing.T) {
	ledger := &stubLedger{orders: map[string]int{"bfx-9": 42}}
	c := domain.NewOrderCorrelator(ledger)

	localID, ok := c.Resolve("bfx-9")
	require.True(t, ok)
	assert.Equal(t, 42, localID)
}

func TestOrderCorrelator_FillThenClose(t *testing.T) {
	c := domain.NewOrderCorrelator(nil)
	c.Record(1, "bfx-1")

	assert.True(t, c.ObserveFill("bfx-1", true))

	// The close for the already-filled order must be swallowed.
	assert.False(t, c.ObserveClose("bfx-1", true))
	assert.False(t, c.ObserveClose("bfx-1", false))
}

func TestOrderCorrelator_CloseThenFill(t *testing.T) {
	c := domain.NewOrderCorrelator(nil)
	c.Record(1, "bfx-1")

	// The exchange closed the order but a fill may still follow: no
	// cancel goes out yet.
	assert.False(t, c.ObserveClose("bfx-1", true))
	assert.True(t, c.PendingClose("bfx-1"))

	// The fill wins and clears the parked close.
	assert.True(t, c.ObserveFill("bfx-1", true))
	assert.False(t, c.PendingClose("bfx-1"))

	assert.False(t, c.ObserveClose("bfx-1", false))
}

func TestOrderCorrelator_DefiniteCancel(t *testing.T) {
	c := domain.NewOrderCorrelator(nil)
	c.Record(1, "bfx-1")

	assert.True(t, c.ObserveClose("bfx-1", false))

	// Nothing more may be emitted for this order.
	assert.False(t, c.ObserveFill("bfx-1", true))
	assert.False(t, c.ObserveClose("bfx-1", false))
}

func TestOrderCorrelator_PartialFillsKeepOrderLive(t *testing.T) {
	c := domain.NewOrderCorrelator(nil)
	c.Record(1, "bfx-1")

	assert.True(t, c.ObserveFill("bfx-1", false))
	assert.True(t, c.ObserveFill("bfx-1", false))
	assert.True(t, c.ObserveFill("bfx-1", true))

	assert.False(t, c.ObserveFill("bfx-1", false))
}

func TestOrderCorrelator_FinalizeDropsCorrelation(t *testing.T) {
	c := domain.NewOrderCorrelator(nil)
	c.Record(1, "bfx-1")
	c.ObserveFill("bfx-1", true)

	_, ok := c.Resolve("bfx-1")
	assert.False(t, ok)
	assert.Empty(t, c.BrokerIDs(1))
}

func TestOrderCorrelator_TicketRetention(t *testing.T) {
	c := domain.NewOrderCorrelator(nil)
	ticket := &domain.OrderTicket{LocalOrderID: 5, Symbol: "BTCUSD"}
	c.RecordTicket(ticket, "mex-1")

	got, ok := c.Ticket(5)
	require.True(t, ok)
	assert.Equal(t, ticket, got)

	localID, ok := c.Resolve("mex-1")
	require.True(t, ok)
	assert.Equal(t, 5, localID)

	c.ObserveFill("mex-1", true)
	_, ok = c.Ticket(5)
	assert.False(t, ok)
}

func TestOrderCorrelator_FinalizedSetIsBounded(t *testing.T) {
	c := domain.NewOrderCorrelator(nil)
	c.Record(0, "b-0")
	require.True(t, c.ObserveClose("b-0", false))
	assert.False(t, c.ObserveFill("b-0", true), "fresh terminal id suppresses late events")

	for i := 1; i <= 5000; i++ {
		id := "b-" + strconv.Itoa(i)
		c.Record(i, id)
		c.ObserveClose(id, false)
	}

	// The oldest id fell out of the dedupe set. Its correlation entry is
	// long gone as well, so no stray event can resolve to it.
	assert.True(t, c.ObserveFill("b-0", true))
	_, ok := c.Resolve("b-0")
	assert.False(t, ok)
}

func TestOrderCorrelator_BrokerIDsPerLocalOrder(t *testing.T) {
	c := domain.NewOrderCorrelator(nil)
	c.Record(1, "bfx-1")
	c.Record(1, "bfx-1b")
	c.Record(2, "bfx-2")

	assert.ElementsMatch(t, []string{"bfx-1", "bfx-1b"}, c.BrokerIDs(1))
	assert.Equal(t, []string{"bfx-2"}, c.BrokerIDs(2))
}
