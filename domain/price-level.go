package domain

import "github.com/shopspring/decimal"

type Side int

const (
	SideBid Side = iota
	SideAsk
)

func (s Side) String() string {
	if s == SideBid {
		return "bid"
	}
	return "ask"
}

// PriceLevel is one resting quantity in a ladder. ID is assigned by the
// exchange and unique among live levels of a symbol; it may be reused
// after the level is removed.
type PriceLevel struct {
	ID    string
	Side  Side
	Price decimal.Decimal
	Size  decimal.Decimal
}

// BookEntry is a decoded snapshot or incremental ladder entry.
type BookEntry struct {
	ID    string
	Side  Side
	Price decimal.Decimal
	Size  decimal.Decimal
}

type BookAction int

const (
	ActionInsert BookAction = iota
	ActionUpdate
	ActionDelete
)

func (a BookAction) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	}
	return "unknown"
}

// Quote is the top of both sides of one symbol's ladder. An empty side
// is reported through HasBid/HasAsk, never as a zero price.
type Quote struct {
	Symbol   string
	BidPrice decimal.Decimal
	BidSize  decimal.Decimal
	AskPrice decimal.Decimal
	AskSize  decimal.Decimal
	HasBid   bool
	HasAsk   bool
}
