package bitfinex

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/spooky-finn/go-broker-bridge/domain"
	"github.com/spooky-finn/go-broker-bridge/helpers"
	"github.com/spooky-finn/go-broker-bridge/infrastructure/ratelimit"
)

const defaultRestEndpoint = "https://api.bitfinex.com/v1"

// RequestSigner injects authentication headers. Signing itself lives
// outside this core.
type RequestSigner func(*http.Request) error

// OrderAPI is the REST order boundary. Every call is paced and retried
// by the shared throttle; the stream gate is held by the caller for the
// whole round trip.
type OrderAPI struct {
	endpoint string
	client   *http.Client
	throttle *ratelimit.Throttle
	sign     RequestSigner
}

func NewOrderAPI(throttle *ratelimit.Throttle, sign RequestSigner) *OrderAPI {
	return &OrderAPI{
		endpoint: defaultRestEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		throttle: throttle,
		sign:     sign,
	}
}

type newOrderResponse struct {
	OrderID int64 `json:"order_id"`
}

func (a *OrderAPI) SubmitOrder(ticket *domain.OrderTicket) (string, error) {
	side := "buy"
	if ticket.Side == domain.SideAsk {
		side = "sell"
	}
	payload := map[string]interface{}{
		"symbol": ticket.Symbol,
		"amount": ticket.Quantity.Abs().String(),
		"price":  ticket.Price.String(),
		"side":   side,
		"type":   "exchange limit",
	}

	var out newOrderResponse
	err := a.throttle.Do(func() (int, error) {
		return a.post("/order/new", payload, &out)
	})
	if err != nil {
		return "", errors.Wrap(err, "submit order")
	}
	return strconv.FormatInt(out.OrderID, 10), nil
}

func (a *OrderAPI) CancelOrder(brokerID string) error {
	orderID, err := strconv.ParseInt(brokerID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "broker id %q is not numeric", brokerID)
	}

	return a.throttle.Do(func() (int, error) {
		return a.post("/order/cancel", map[string]interface{}{"order_id": orderID}, nil)
	})
}

// post reports the HTTP status to the throttle so 429s are retried.
func (a *OrderAPI) post(path string, payload interface{}, out interface{}) (int, error) {
	req, err := http.NewRequest(http.MethodPost, a.endpoint+path,
		bytes.NewReader([]byte(helpers.ToJsonString(payload))))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.sign != nil {
		if err := a.sign(req); err != nil {
			return 0, errors.Wrap(err, "sign request")
		}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return resp.StatusCode, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, errors.Errorf("request failed: [%d] %s", resp.StatusCode, body)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, errors.Wrap(err, "decode response")
		}
	}
	return resp.StatusCode, nil
}
