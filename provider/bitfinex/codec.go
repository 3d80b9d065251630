package bitfinex

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/spooky-finn/go-broker-bridge/domain"
	"github.com/spooky-finn/go-broker-bridge/helpers"
)

// Wire format: compact array frames [chanId, payload...] for channel
// data, tagged objects for subscription lifecycle events. Channel 0 is
// the authenticated account channel ("tu" fills, "oc" order closes).
// Book levels are keyed by price: the price string doubles as the
// level id, and the side is the sign of the amount field.
type Codec struct {
	mu       sync.Mutex
	channels map[int64]channelInfo
}

type channelInfo struct {
	name string
	pair string
}

func NewCodec() *Codec {
	return &Codec{channels: make(map[int64]channelInfo)}
}

type eventFrame struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
	ChanID  int64  `json:"chanId"`
	Pair    string `json:"pair"`
}

func (c *Codec) Decode(raw []byte) (*domain.Message, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty frame")
	}

	switch raw[0] {
	case '[':
		return c.decodeArray(raw)
	case '{':
		return c.decodeEvent(raw)
	}
	return nil, errors.Errorf("unrecognized frame start %q", raw[0])
}

func (c *Codec) decodeEvent(raw []byte) (*domain.Message, error) {
	var ev eventFrame
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, errors.Wrap(err, "decode event frame")
	}

	switch strings.ToLower(ev.Event) {
	case "subscribed":
		c.mu.Lock()
		c.channels[ev.ChanID] = channelInfo{name: ev.Channel, pair: ev.Pair}
		c.mu.Unlock()
		return &domain.Message{Kind: domain.KindSubscribeAck, Symbol: ev.Pair}, nil

	case "unsubscribed":
		c.mu.Lock()
		info, ok := c.channels[ev.ChanID]
		delete(c.channels, ev.ChanID)
		c.mu.Unlock()
		if !ok {
			return &domain.Message{Kind: domain.KindIgnore}, nil
		}
		return &domain.Message{Kind: domain.KindUnsubscribeAck, Symbol: info.pair}, nil

	case "info", "ping", "pong", "auth", "error", "conf":
		return &domain.Message{Kind: domain.KindIgnore}, nil
	}
	return &domain.Message{Kind: domain.KindIgnore}, nil
}

func (c *Codec) decodeArray(raw []byte) (*domain.Message, error) {
	var frame []json.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, errors.Wrap(err, "decode array frame")
	}
	if len(frame) < 2 {
		return nil, errors.New("array frame too short")
	}

	var chanID int64
	if err := json.Unmarshal(frame[0], &chanID); err != nil {
		return nil, errors.Wrap(err, "decode channel id")
	}

	if chanID == 0 {
		return c.decodeAccountFrame(frame)
	}

	c.mu.Lock()
	info, ok := c.channels[chanID]
	c.mu.Unlock()
	if !ok {
		return nil, errors.Errorf("frame for unknown channel %d", chanID)
	}

	// Heartbeats come as [chanId, "hb"] on every channel.
	if isString(frame[1], "hb") {
		return &domain.Message{Kind: domain.KindIgnore}, nil
	}

	switch info.name {
	case "book":
		return c.decodeBookFrame(info.pair, frame)
	case "trades":
		return c.decodeTradeFrame(info.pair, frame)
	}
	return &domain.Message{Kind: domain.KindIgnore}, nil
}

// decodeBookFrame handles [chanId, [[price,count,amount],...]] book
// snapshots and [chanId, price, count, amount] single-level updates.
// A count of zero removes the level.
func (c *Codec) decodeBookFrame(pair string, frame []json.RawMessage) (*domain.Message, error) {
	if len(frame) == 2 {
		var rows [][]json.RawMessage
		if err := json.Unmarshal(frame[1], &rows); err != nil {
			return nil, errors.Wrap(err, "decode book snapshot")
		}

		entries := make([]domain.BookEntry, 0, len(rows))
		for _, row := range rows {
			entry, remove, err := bookEntry(row)
			if err != nil {
				return nil, err
			}
			if !remove {
				entries = append(entries, entry)
			}
		}
		return &domain.Message{Kind: domain.KindSnapshot, Symbol: pair, Book: entries}, nil
	}

	if len(frame) != 4 {
		return nil, errors.Errorf("book update frame of length %d", len(frame))
	}
	entry, remove, err := bookEntry(frame[1:])
	if err != nil {
		return nil, err
	}

	action := domain.ActionUpdate
	if remove {
		action = domain.ActionDelete
	}
	return &domain.Message{
		Kind:   domain.KindIncremental,
		Symbol: pair,
		Action: action,
		Book:   []domain.BookEntry{entry},
	}, nil
}

// bookEntry parses a (price, count, amount) triple. The sign of the
// amount selects the side; count == 0 marks a removal.
func bookEntry(row []json.RawMessage) (domain.BookEntry, bool, error) {
	if len(row) != 3 {
		return domain.BookEntry{}, false, errors.Errorf("book row of length %d", len(row))
	}

	price, err := helpers.DecimalFromJSON(row[0])
	if err != nil {
		return domain.BookEntry{}, false, errors.Wrap(err, "parse level price")
	}
	var count int64
	if err := json.Unmarshal(row[1], &count); err != nil {
		return domain.BookEntry{}, false, errors.Wrap(err, "parse level count")
	}
	amount, err := helpers.DecimalFromJSON(row[2])
	if err != nil {
		return domain.BookEntry{}, false, errors.Wrap(err, "parse level amount")
	}

	side := domain.SideBid
	if amount.IsNegative() {
		side = domain.SideAsk
	}
	entry := domain.BookEntry{
		ID:    price.String(),
		Side:  side,
		Price: price,
		Size:  amount.Abs(),
	}
	return entry, count == 0, nil
}

// decodeTradeFrame handles [chanId, "te", seq, timestamp, price,
// amount] trade executions; snapshots and "tu" duplicates are ignored.
func (c *Codec) decodeTradeFrame(pair string, frame []json.RawMessage) (*domain.Message, error) {
	if !isString(frame[1], "te") {
		return &domain.Message{Kind: domain.KindIgnore}, nil
	}
	if len(frame) < 6 {
		return nil, errors.Errorf("trade frame of length %d", len(frame))
	}

	var ts float64
	if err := json.Unmarshal(frame[3], &ts); err != nil {
		return nil, errors.Wrap(err, "parse trade timestamp")
	}
	price, err := helpers.DecimalFromJSON(frame[4])
	if err != nil {
		return nil, errors.Wrap(err, "parse trade price")
	}
	amount, err := helpers.DecimalFromJSON(frame[5])
	if err != nil {
		return nil, errors.Wrap(err, "parse trade amount")
	}

	return &domain.Message{
		Kind:   domain.KindTrade,
		Symbol: pair,
		Trades: []domain.TradeEntry{{
			Symbol: pair,
			Price:  price,
			Size:   amount.Abs(),
			Time:   helpers.TimeFromUnixSeconds(ts),
		}},
	}, nil
}

// decodeAccountFrame handles channel 0: [0, term, payload]. Only order
// closes ("oc") and trade updates carrying fills ("tu") matter.
func (c *Codec) decodeAccountFrame(frame []json.RawMessage) (*domain.Message, error) {
	var term string
	if err := json.Unmarshal(frame[1], &term); err != nil {
		return &domain.Message{Kind: domain.KindIgnore}, nil
	}
	if len(frame) < 3 {
		return &domain.Message{Kind: domain.KindIgnore}, nil
	}

	var row []json.RawMessage
	switch strings.ToLower(term) {
	case "oc":
		if err := json.Unmarshal(frame[2], &row); err != nil {
			return nil, errors.Wrap(err, "decode order close")
		}
		return c.decodeOrderClose(row)
	case "tu":
		if err := json.Unmarshal(frame[2], &row); err != nil {
			return nil, errors.Wrap(err, "decode fill")
		}
		return c.decodeFill(row)
	}
	return &domain.Message{Kind: domain.KindIgnore}, nil
}

// Order close row: id at [0], symbol at [1], status text at [5]. A
// status that spells "canceled" is a definitive cancel; any other close
// may still be followed by the fill that caused it.
func (c *Codec) decodeOrderClose(row []json.RawMessage) (*domain.Message, error) {
	if len(row) < 6 {
		return nil, errors.Errorf("order close row of length %d", len(row))
	}

	brokerID, err := helpers.StringFromJSON(row[0])
	if err != nil {
		return nil, errors.Wrap(err, "parse close order id")
	}
	status, err := helpers.StringFromJSON(row[5])
	if err != nil {
		return nil, errors.Wrap(err, "parse close status")
	}

	canceled := strings.Contains(strings.ToLower(status), "canceled")
	return &domain.Message{
		Kind: domain.KindExecution,
		Executions: []domain.ExecutionEntry{{
			BrokerID:     brokerID,
			Status:       domain.StatusCanceled,
			FillPossible: !canceled,
		}},
	}, nil
}

// Fill row: symbol at [2], unix time at [3], order id at [4], quantity
// at [5], price at [6]. The wire does not say whether the fill
// completed the order; the gateway decides that against the ticket.
func (c *Codec) decodeFill(row []json.RawMessage) (*domain.Message, error) {
	if len(row) < 7 {
		return nil, errors.Errorf("fill row of length %d", len(row))
	}

	symbol, err := helpers.StringFromJSON(row[2])
	if err != nil {
		return nil, errors.Wrap(err, "parse fill symbol")
	}
	var ts float64
	if err := json.Unmarshal(row[3], &ts); err != nil {
		return nil, errors.Wrap(err, "parse fill timestamp")
	}
	brokerID, err := helpers.StringFromJSON(row[4])
	if err != nil {
		return nil, errors.Wrap(err, "parse fill order id")
	}
	qty, err := helpers.DecimalFromJSON(row[5])
	if err != nil {
		return nil, errors.Wrap(err, "parse fill quantity")
	}
	price, err := helpers.DecimalFromJSON(row[6])
	if err != nil {
		return nil, errors.Wrap(err, "parse fill price")
	}

	return &domain.Message{
		Kind: domain.KindExecution,
		Executions: []domain.ExecutionEntry{{
			BrokerID:  brokerID,
			Symbol:    symbol,
			Status:    domain.StatusPartiallyFilled,
			FillPrice: price,
			FillQty:   qty,
			Fee:       decimal.Zero,
			Time:      helpers.TimeFromUnixSeconds(ts),
		}},
	}, nil
}

func isString(raw json.RawMessage, want string) bool {
	var s string
	return json.Unmarshal(raw, &s) == nil && s == want
}
