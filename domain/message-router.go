package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type MessageKind int

const (
	KindIgnore MessageKind = iota
	KindSubscribeAck
	KindUnsubscribeAck
	KindSnapshot
	KindIncremental
	KindTrade
	KindExecution
)

func (k MessageKind) String() string {
	switch k {
	case KindSubscribeAck:
		return "subscribe-ack"
	case KindUnsubscribeAck:
		return "unsubscribe-ack"
	case KindSnapshot:
		return "snapshot"
	case KindIncremental:
		return "incremental"
	case KindTrade:
		return "trade"
	case KindExecution:
		return "execution"
	}
	return "ignore"
}

type TradeEntry struct {
	Symbol string
	Price  decimal.Decimal
	Size   decimal.Decimal
	Time   time.Time
}

type ExecutionEntry struct {
	BrokerID  string
	Symbol    string
	Status    OrderStatus
	FillPrice decimal.Decimal
	FillQty   decimal.Decimal
	Fee       decimal.Decimal
	Time      time.Time

	// FillPossible marks a close notification that may still be
	// followed by a fill for the same order: the exchange reported the
	// order closed without saying it was canceled.
	FillPossible bool
}

// Message is the closed, exchange-agnostic form every stream frame
// decodes to. Kind selects which payload fields are populated.
type Message struct {
	Kind   MessageKind
	Symbol string

	// KindIncremental
	Action BookAction
	// KindSnapshot / KindIncremental
	Book []BookEntry
	// KindTrade
	Trades []TradeEntry
	// KindExecution
	Executions []ExecutionEntry
}

// Codec decodes one exchange's wire format into Messages. Heartbeats,
// info frames and anything unrecognized decode to KindIgnore.
type Codec interface {
	Decode(raw []byte) (*Message, error)
}

type Handler func(*Message) error

// Router maps a decoded message kind to its handler. Unknown kinds are
// dropped at trace level; a frame that fails to decode produces an
// error diagnostic and leaves the stream running.
type Router struct {
	codec    Codec
	handlers map[MessageKind]Handler
	diag     DiagnosticSink
}

func NewRouter(codec Codec, diag DiagnosticSink) *Router {
	return &Router{
		codec:    codec,
		handlers: make(map[MessageKind]Handler),
		diag:     diag,
	}
}

func (r *Router) Handle(kind MessageKind, h Handler) {
	r.handlers[kind] = h
}

func (r *Router) Route(raw RawMessage) error {
	msg, err := r.codec.Decode(raw.Payload)
	if err != nil {
		r.diag.Errorf("stream.decode", "parsing stream message failed: %s", err)
		return errors.Wrap(err, "decode stream message")
	}
	if msg == nil || msg.Kind == KindIgnore {
		return nil
	}

	h, ok := r.handlers[msg.Kind]
	if !ok {
		logger.Tracef("no handler for message kind %s, dropped", msg.Kind)
		return nil
	}
	return h(msg)
}
