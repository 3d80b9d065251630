package bitmex

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/spooky-finn/go-broker-bridge/domain"
	"github.com/spooky-finn/go-broker-bridge/helpers"
	"github.com/spooky-finn/go-broker-bridge/infrastructure/ratelimit"
)

const defaultRestEndpoint = "https://www.bitmex.com/api/v1"

// RequestSigner injects authentication headers. Signing itself lives
// outside this core.
type RequestSigner func(*http.Request) error

// OrderAPI is the REST order boundary, paced and retried by the shared
// throttle.
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

type orderResponse struct {
	OrderID string `json:"orderID"`
}

func (a *OrderAPI) SubmitOrder(ticket *domain.OrderTicket) (string, error) {
	side := "Buy"
	if ticket.Side == domain.SideAsk {
		side = "Sell"
	}
	payload := map[string]interface{}{
		"symbol":   ticket.Symbol,
		"side":     side,
		"orderQty": ticket.Quantity.Abs(),
		"price":    ticket.Price,
		"ordType":  "Limit",
	}

	var out orderResponse
	err := a.throttle.Do(func() (int, error) {
		return a.do(http.MethodPost, "/order", payload, &out)
	})
	if err != nil {
		return "", errors.Wrap(err, "submit order")
	}
	return out.OrderID, nil
}

func (a *OrderAPI) CancelOrder(brokerID string) error {
	path := "/order?orderID=" + url.QueryEscape(brokerID)
	return a.throttle.Do(func() (int, error) {
		return a.do(http.MethodDelete, path, nil, nil)
	})
}

func (a *OrderAPI) do(method, path string, payload interface{}, out interface{}) (int, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader([]byte(helpers.ToJsonString(payload)))
	}

	req, err := http.NewRequest(method, a.endpoint+path, body)
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
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, errors.Errorf("request failed: [%d] %s", resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, errors.Wrap(err, "decode response")
		}
	}
	return resp.StatusCode, nil
}
