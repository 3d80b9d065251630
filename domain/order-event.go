package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus int

const (
	StatusSubmitted OrderStatus = iota
	StatusPartiallyFilled
	StatusFilled
	StatusCanceled
	StatusRejected
)

func (s OrderStatus) String() string {
	switch s {
	case StatusSubmitted:
		return "submitted"
	case StatusPartiallyFilled:
		return "partially-filled"
	case StatusFilled:
		return "filled"
	case StatusCanceled:
		return "canceled"
	case StatusRejected:
		return "rejected"
	}
	return "unknown"
}

// Terminal reports whether no further lifecycle events can follow.
func (s OrderStatus) Terminal() bool {
	return s == StatusFilled || s == StatusCanceled || s == StatusRejected
}

// OrderTicket is the host's view of an order being submitted.
type OrderTicket struct {
	LocalOrderID int
	Symbol       string
	Side         Side
	Price        decimal.Decimal
	Quantity     decimal.Decimal
}

// OrderEvent is a lifecycle notification delivered to the host.
type OrderEvent struct {
	LocalOrderID int
	Status       OrderStatus
	FillPrice    decimal.Decimal
	FillQty      decimal.Decimal
	Fee          decimal.Decimal
	Time         time.Time
}

// OrderSubmitter is the REST boundary. Signing, throttling and retries
// live behind it; the core only requires the exchange-assigned broker
// id back on success.
type OrderSubmitter interface {
	SubmitOrder(ticket *OrderTicket) (brokerID string, err error)
	CancelOrder(brokerID string) error
}

// OrderLedger is the authoritative fallback for resolving broker ids
// that are not in the in-memory correlation map, e.g. orders placed by
// another session against the same account.
type OrderLedger interface {
	LookupOrder(brokerID string) (localOrderID int, ok bool)
}

// SymbolMapper translates exchange symbols into host symbols.
type SymbolMapper interface {
	ToHostSymbol(exchangeSymbol string) string
}
