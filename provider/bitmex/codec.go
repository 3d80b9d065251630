package bitmex

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/spooky-finn/go-broker-bridge/domain"
)

// Wire format: tagged objects {table, action, data}. Book levels carry
// an exchange-assigned numeric id that stays stable for the lifetime of
// the level, plus an explicit side tag. An "orderBookL2" partial is the
// snapshot; insert/update/delete are incrementals against it.
type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

type wireFrame struct {
	Table       string          `json:"table"`
	Action      string          `json:"action"`
	Data        json.RawMessage `json:"data"`
	Subscribe   string          `json:"subscribe"`
	Unsubscribe string          `json:"unsubscribe"`
	Success     bool            `json:"success"`
	Info        string          `json:"info"`
}

type bookRow struct {
	Symbol string          `json:"symbol"`
	ID     int64           `json:"id"`
	Side   string          `json:"side"`
	Size   decimal.Decimal `json:"size"`
	Price  decimal.Decimal `json:"price"`
}

type tradeRow struct {
	Timestamp time.Time       `json:"timestamp"`
	Symbol    string          `json:"symbol"`
	Size      decimal.Decimal `json:"size"`
	Price     decimal.Decimal `json:"price"`
}

type executionRow struct {
	OrderID    string          `json:"orderID"`
	Symbol     string          `json:"symbol"`
	OrdStatus  string          `json:"ordStatus"`
	ExecType   string          `json:"execType"`
	LastQty    decimal.Decimal `json:"lastQty"`
	LastPx     decimal.Decimal `json:"lastPx"`
	Commission decimal.Decimal `json:"commission"`
	Timestamp  time.Time       `json:"timestamp"`
}

func (c *Codec) Decode(raw []byte) (*domain.Message, error) {
	var frame wireFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, errors.Wrap(err, "decode frame")
	}

	if frame.Subscribe != "" {
		return &domain.Message{Kind: domain.KindSubscribeAck, Symbol: topicSymbol(frame.Subscribe)}, nil
	}
	if frame.Unsubscribe != "" {
		return &domain.Message{Kind: domain.KindUnsubscribeAck, Symbol: topicSymbol(frame.Unsubscribe)}, nil
	}

	switch frame.Table {
	case "orderBookL2":
		return c.decodeBook(&frame)
	case "trade":
		return c.decodeTrades(&frame)
	case "execution":
		return c.decodeExecutions(&frame)
	case "":
		// Welcome/info frames and bare acks.
		return &domain.Message{Kind: domain.KindIgnore}, nil
	}
	return &domain.Message{Kind: domain.KindIgnore}, nil
}

func (c *Codec) decodeBook(frame *wireFrame) (*domain.Message, error) {
	var rows []bookRow
	if err := json.Unmarshal(frame.Data, &rows); err != nil {
		return nil, errors.Wrap(err, "decode book rows")
	}
	if len(rows) == 0 {
		return &domain.Message{Kind: domain.KindIgnore}, nil
	}

	entries := make([]domain.BookEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.BookEntry{
			ID:    strconv.FormatInt(row.ID, 10),
			Side:  rowSide(row.Side),
			Price: row.Price,
			Size:  row.Size,
		})
	}

	if strings.EqualFold(frame.Action, "partial") {
		return &domain.Message{Kind: domain.KindSnapshot, Symbol: rows[0].Symbol, Book: entries}, nil
	}

	var action domain.BookAction
	switch strings.ToLower(frame.Action) {
	case "insert":
		action = domain.ActionInsert
	case "update":
		action = domain.ActionUpdate
	case "delete":
		action = domain.ActionDelete
	default:
		return nil, errors.Errorf("unknown book action %q", frame.Action)
	}

	return &domain.Message{
		Kind:   domain.KindIncremental,
		Symbol: rows[0].Symbol,
		Action: action,
		Book:   entries,
	}, nil
}

func (c *Codec) decodeTrades(frame *wireFrame) (*domain.Message, error) {
	// Partials replay history; only fresh inserts become ticks.
	if !strings.EqualFold(frame.Action, "insert") {
		return &domain.Message{Kind: domain.KindIgnore}, nil
	}

	var rows []tradeRow
	if err := json.Unmarshal(frame.Data, &rows); err != nil {
		return nil, errors.Wrap(err, "decode trade rows")
	}

	trades := make([]domain.TradeEntry, 0, len(rows))
	for _, row := range rows {
		trades = append(trades, domain.TradeEntry{
			Symbol: row.Symbol,
			Price:  row.Price,
			Size:   row.Size,
			Time:   row.Timestamp.UTC(),
		})
	}
	if len(trades) == 0 {
		return &domain.Message{Kind: domain.KindIgnore}, nil
	}
	return &domain.Message{Kind: domain.KindTrade, Symbol: trades[0].Symbol, Trades: trades}, nil
}

func (c *Codec) decodeExecutions(frame *wireFrame) (*domain.Message, error) {
	if !strings.EqualFold(frame.Action, "insert") {
		return &domain.Message{Kind: domain.KindIgnore}, nil
	}

	var rows []executionRow
	if err := json.Unmarshal(frame.Data, &rows); err != nil {
		return nil, errors.Wrap(err, "decode execution rows")
	}

	execs := make([]domain.ExecutionEntry, 0, len(rows))
	for _, row := range rows {
		// Funding charges come through the execution table as well;
		// fee accounting is outside this core.
		if strings.EqualFold(row.ExecType, "Funding") {
			continue
		}
		status, ok := convertOrderStatus(row.OrdStatus)
		if !ok {
			continue
		}
		execs = append(execs, domain.ExecutionEntry{
			BrokerID:  row.OrderID,
			Symbol:    row.Symbol,
			Status:    status,
			FillPrice: row.LastPx,
			FillQty:   row.LastQty,
			Fee:       row.Commission,
			Time:      row.Timestamp.UTC(),
		})
	}
	if len(execs) == 0 {
		return &domain.Message{Kind: domain.KindIgnore}, nil
	}
	return &domain.Message{Kind: domain.KindExecution, Executions: execs}, nil
}

func convertOrderStatus(ordStatus string) (domain.OrderStatus, bool) {
	switch strings.ToLower(ordStatus) {
	case "new":
		return domain.StatusSubmitted, true
	case "partiallyfilled":
		return domain.StatusPartiallyFilled, true
	case "filled":
		return domain.StatusFilled, true
	case "canceled":
		return domain.StatusCanceled, true
	case "rejected":
		return domain.StatusRejected, true
	}
	return 0, false
}

func rowSide(side string) domain.Side {
	if strings.EqualFold(side, "Sell") {
		return domain.SideAsk
	}
	return domain.SideBid
}

// topicSymbol splits "orderBookL2:XBTUSD" style topics.
func topicSymbol(topic string) string {
	if i := strings.IndexByte(topic, ':'); i >= 0 {
		return topic[i+1:]
	}
	return ""
}
