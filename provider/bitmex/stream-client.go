package bitmex

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/recws-org/recws"
	"github.com/sirupsen/logrus"

	"github.com/spooky-finn/go-broker-bridge/config"
)

const (
	defaultWebsocketEndpoint = "wss://www.bitmex.com/realtime"
	pingInterval             = time.Minute * 3
)

var logger = logrus.WithField("exchange", "bitmex")

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

type opRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

func (c *StreamClient) SubscribeBook(symbol string) error {
	logger.Debugf("subscribing to orderBookL2, symbol=%s", symbol)
	return c.conn.WriteJSON(opRequest{Op: "subscribe", Args: []string{"orderBookL2:" + symbol}})
}

func (c *StreamClient) SubscribeTrades(symbol string) error {
	logger.Debugf("subscribing to trade, symbol=%s", symbol)
	return c.conn.WriteJSON(opRequest{Op: "subscribe", Args: []string{"trade:" + symbol}})
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
