package bitfinex

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/recws-org/recws"
	"github.com/sirupsen/logrus"

	"github.com/spooky-finn/go-broker-bridge/config"
)

const (
	defaultWebsocketEndpoint = "wss://api-pub.bitfinex.com/ws/1"
	pingInterval             = time.Minute * 3
)

var logger = logrus.WithField("exchange", "bitfinex")

// StreamClient keeps one reconnecting websocket to the exchange and
// feeds every raw frame to the onMessage callback in arrival order.
type StreamClient struct {
	endpoint  string
	conn      *recws.RecConn
	onMessage func([]byte)
	done      chan struct{}
}

func NewStreamClient(onMessage func([]byte)) *StreamClient {
	return &StreamClient{
		endpoint:  defaultWebsocketEndpoint,
		onMessage: onMessage,
		done:      make(chan struct{}),
	}
}

func (c *StreamClient) Connect() error {
	conn := &recws.RecConn{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 5 * time.Second,
		KeepAliveTimeout: pingInterval,
	}
	conn.Dial(c.endpoint, nil)
	c.conn = conn

	go c.read()
	go c.keepAlive()
	return nil
}

type subscribeRequest struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
	Pair    string `json:"pair"`
}

func (c *StreamClient) SubscribeBook(pair string) error {
	logger.Debugf("subscribing to book channel, pair=%s", pair)
	return c.conn.WriteJSON(subscribeRequest{Event: "subscribe", Channel: "book", Pair: pair})
}

func (c *StreamClient) SubscribeTrades(pair string) error {
	logger.Debugf("subscribing to trades channel, pair=%s", pair)
	return c.conn.WriteJSON(subscribeRequest{Event: "subscribe", Channel: "trades", Pair: pair})
}

func (c *StreamClient) Close() error {
	close(c.done)
	c.conn.Close()
	return nil
}

func (c *StreamClient) read() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			logger.Warnf("read from stream failed: %s", err)
			continue
		}
		if config.DebugMode {
			logger.Debugf("frame: %s", msg)
		}
		c.onMessage(msg)
	}
}

func (c *StreamClient) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warnf("ping failed: %s", err)
			}
		}
	}
}
