package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// GatewayDeps are the collaborators a Gateway is wired with. Submitter,
// Ledger and Mapper are the external boundaries: signing, throttling
// and symbol translation happen behind them.
type GatewayDeps struct {
	Codec        Codec
	Submitter    OrderSubmitter
	Ledger       OrderLedger
	Mapper       SymbolMapper
	OnOrderEvent func(OrderEvent)
	Diagnostics  DiagnosticSink
}

// Gateway is the exchange-agnostic core of one exchange connection:
// raw stream frames come in through OnRawMessage, pass the stream gate,
// get decoded and routed, and end up as ladder mutations, quote/trade
// ticks or order lifecycle events. Synchronous order submissions hold
// the gate for the whole REST round trip, so a fill can never outrun
// the recording of its broker id.
type Gateway struct {
	exchange string

	gate       *StreamGate
	router     *Router
	book       *OrderBook
	correlator *OrderCorrelator
	quotes     *QuoteEmitter
	trades     *TradeEmitter

	submitter    OrderSubmitter
	mapper       SymbolMapper
	onOrderEvent func(OrderEvent)
	diag         DiagnosticSink
	log          *logrus.Entry
}

func NewGateway(exchange string, deps GatewayDeps) *Gateway {
	g := &Gateway{
		exchange:     exchange,
		quotes:       NewQuoteEmitter(),
		trades:       NewTradeEmitter(),
		correlator:   NewOrderCorrelator(deps.Ledger),
		submitter:    deps.Submitter,
		mapper:       deps.Mapper,
		onOrderEvent: deps.OnOrderEvent,
		diag:         deps.Diagnostics,
		log:          logrus.WithField("exchange", exchange),
	}

	g.book = NewOrderBook(g.quotes.Emit)
	g.router = NewRouter(deps.Codec, deps.Diagnostics)
	g.router.Handle(KindSubscribeAck, g.onSubscribeAck)
	g.router.Handle(KindUnsubscribeAck, g.onUnsubscribeAck)
	g.router.Handle(KindSnapshot, g.onSnapshot)
	g.router.Handle(KindIncremental, g.onIncremental)
	g.router.Handle(KindTrade, g.onTrade)
	g.router.Handle(KindExecution, g.onExecution)
	g.gate = NewStreamGate(g.router.Route, deps.Diagnostics)
	return g
}

// OnRawMessage accepts one raw frame from the stream transport. It is
// called on the transport goroutine and never blocks on external I/O.
func (g *Gateway) OnRawMessage(payload []byte) {
	g.gate.Deliver(payload)
}

// PlaceOrder submits an order through the REST boundary. The stream
// gate is held for the entire call, including failures: events for the
// returned broker id can only be dispatched after Record has run.
func (g *Gateway) PlaceOrder(ticket *OrderTicket) error {
	g.gate.Lock()
	defer g.gate.Unlock()

	brokerID, err := g.submitter.SubmitOrder(ticket)
	if err != nil {
		g.diag.Warnf("order.submit", "order %d submission failed: %s", ticket.LocalOrderID, err)
		return errors.Wrapf(err, "submit order %d", ticket.LocalOrderID)
	}

	g.correlator.RecordTicket(ticket, brokerID)
	g.emitOrderEvent(OrderEvent{
		LocalOrderID: ticket.LocalOrderID,
		Status:       StatusSubmitted,
		Time:         time.Now().UTC(),
	})
	return nil
}

// CancelOrder requests cancellation of every broker id attached to the
// local order, under the same gate discipline as PlaceOrder.
func (g *Gateway) CancelOrder(localOrderID int) error {
	g.gate.Lock()
	defer g.gate.Unlock()

	brokerIDs := g.correlator.BrokerIDs(localOrderID)
	if len(brokerIDs) == 0 {
		return errors.Errorf("no broker id recorded for order %d", localOrderID)
	}
	for _, brokerID := range brokerIDs {
		if err := g.submitter.CancelOrder(brokerID); err != nil {
			g.diag.Warnf("order.cancel", "cancel of order %d failed: %s", localOrderID, err)
			return errors.Wrapf(err, "cancel order %d", localOrderID)
		}
	}
	return nil
}

// Quotes exposes the top-of-book tick buffer drained by the host.
func (g *Gateway) Quotes() *QuoteEmitter { return g.quotes }

// Trades exposes the trade tick buffer drained by the host.
func (g *Gateway) Trades() *TradeEmitter { return g.trades }

// Book exposes the order book for direct top-of-book reads.
func (g *Gateway) Book() *OrderBook { return g.book }

// Gate exposes the stream gate; tests and transports use it to observe
// backlog state.
func (g *Gateway) Gate() *StreamGate { return g.gate }

func (g *Gateway) onSubscribeAck(msg *Message) error {
	g.log.Debugf("subscribed, symbol=%s", msg.Symbol)
	return nil
}

func (g *Gateway) onUnsubscribeAck(msg *Message) error {
	g.book.Drop(g.hostSymbol(msg.Symbol))
	g.log.Debugf("unsubscribed, symbol=%s", msg.Symbol)
	return nil
}

func (g *Gateway) onSnapshot(msg *Message) error {
	g.book.ApplySnapshot(g.hostSymbol(msg.Symbol), msg.Book)
	return nil
}

// onIncremental applies each entry on its own. A structurally broken
// entry (unknown level id) is reported and skipped; it must not poison
// the remaining entries or other symbols' ladders.
func (g *Gateway) onIncremental(msg *Message) error {
	symbol := g.hostSymbol(msg.Symbol)
	for _, entry := range msg.Book {
		err := g.book.ApplyIncremental(symbol, msg.Action, entry)

		// Price-keyed books (the array wire form) cannot tell an insert
		// from an update: an update that carries a price upserts.
		if err == ErrLevelNotFound && msg.Action == ActionUpdate && !entry.Price.IsZero() {
			err = g.book.ApplyIncremental(symbol, ActionInsert, entry)
		}
		if err != nil {
			g.diag.Errorf("book.update", "%s of level %s on %s failed: %s", msg.Action, entry.ID, symbol, err)
		}
	}
	return nil
}

func (g *Gateway) onTrade(msg *Message) error {
	for _, trade := range msg.Trades {
		trade.Symbol = g.hostSymbol(trade.Symbol)
		g.trades.Emit(trade)
	}
	return nil
}

func (g *Gateway) onExecution(msg *Message) error {
	for _, exec := range msg.Executions {
		g.applyExecution(exec)
	}
	return nil
}

func (g *Gateway) applyExecution(exec ExecutionEntry) {
	localID, ok := g.correlator.Resolve(exec.BrokerID)
	if !ok {
		// Not our order, nothing else to do here.
		return
	}

	status := exec.Status

	// Some exchanges report fills without a full/partial distinction.
	// Mirror the order quantity against the fill to decide terminality.
	if status == StatusPartiallyFilled {
		if ticket, ok := g.correlator.Ticket(localID); ok &&
			exec.FillQty.Abs().GreaterThanOrEqual(ticket.Quantity.Abs()) {
			status = StatusFilled
		}
	}

	event := OrderEvent{
		LocalOrderID: localID,
		Status:       status,
		FillPrice:    exec.FillPrice,
		FillQty:      exec.FillQty,
		Fee:          exec.Fee,
		Time:         exec.Time,
	}

	switch status {
	case StatusFilled, StatusPartiallyFilled:
		if g.correlator.ObserveFill(exec.BrokerID, status == StatusFilled) {
			g.emitOrderEvent(event)
		}
	case StatusCanceled:
		if g.correlator.ObserveClose(exec.BrokerID, exec.FillPossible) {
			g.emitOrderEvent(event)
		}
	case StatusRejected:
		if g.correlator.ObserveClose(exec.BrokerID, false) {
			g.emitOrderEvent(event)
		}
	}
}

func (g *Gateway) emitOrderEvent(event OrderEvent) {
	if g.onOrderEvent != nil {
		g.onOrderEvent(event)
	}
}

func (g *Gateway) hostSymbol(exchangeSymbol string) string {
	if g.mapper == nil {
		return exchangeSymbol
	}
	return g.mapper.ToHostSymbol(exchangeSymbol)
}
