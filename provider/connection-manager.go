package provider

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/spooky-finn/go-broker-bridge/config"
	"github.com/spooky-finn/go-broker-bridge/domain"
	promclient "github.com/spooky-finn/go-broker-bridge/infrastructure/prometheus"
	"github.com/spooky-finn/go-broker-bridge/infrastructure/ratelimit"
	"github.com/spooky-finn/go-broker-bridge/provider/bitfinex"
	"github.com/spooky-finn/go-broker-bridge/provider/bitmex"
)

var logger = logrus.WithField("component", "provider")

// StreamClient is the transport side of one exchange connection.
type StreamClient interface {
	Connect() error
	SubscribeBook(symbol string) error
	SubscribeTrades(symbol string) error
	Close() error
}

// Host carries the collaborators and callbacks the trading host plugs
// into every gateway.
type Host struct {
	Ledger       domain.OrderLedger
	Mapper       domain.SymbolMapper
	OnOrderEvent func(domain.OrderEvent)
	Diagnostics  domain.DiagnosticSink
}

// Adapter bundles one exchange's gateway with its stream transport.
type Adapter struct {
	Name    string
	Gateway *domain.Gateway
	Client  StreamClient
}

type ConnectionManager struct {
	adapters map[string]*Adapter
}

func NewConnectionManager(cfg *config.Config, host Host) *ConnectionManager {
	cm := &ConnectionManager{adapters: make(map[string]*Adapter)}

	perSecond := cfg.RestRatePerMinute / 60

	bfxThrottle := ratelimit.NewThrottle(
		ratelimit.NewTokenBucket(cfg.RestBurst, perSecond), cfg.SubmitMaxAttempts, host.Diagnostics)
	bfxGateway := domain.NewGateway("bitfinex", domain.GatewayDeps{
		Codec:        bitfinex.NewCodec(),
		Submitter:    bitfinex.NewOrderAPI(bfxThrottle, nil),
		Ledger:       host.Ledger,
		Mapper:       host.Mapper,
		OnOrderEvent: host.OnOrderEvent,
		Diagnostics:  host.Diagnostics,
	})
	cm.adapters["bitfinex"] = &Adapter{
		Name:    "bitfinex",
		Gateway: bfxGateway,
		Client:  bitfinex.NewStreamClient(cm.countingHandler("bitfinex", bfxGateway)),
	}

	mexThrottle := ratelimit.NewThrottle(
		ratelimit.NewTokenBucket(cfg.RestBurst, perSecond), cfg.SubmitMaxAttempts, host.Diagnostics)
	mexGateway := domain.NewGateway("bitmex", domain.GatewayDeps{
		Codec:        bitmex.NewCodec(),
		Submitter:    bitmex.NewOrderAPI(mexThrottle, nil),
		Ledger:       host.Ledger,
		Mapper:       host.Mapper,
		OnOrderEvent: host.OnOrderEvent,
		Diagnostics:  host.Diagnostics,
	})
	cm.adapters["bitmex"] = &Adapter{
		Name:    "bitmex",
		Gateway: mexGateway,
		Client:  bitmex.NewStreamClient(cm.countingHandler("bitmex", mexGateway)),
	}

	return cm
}

func (cm *ConnectionManager) countingHandler(exchange string, gw *domain.Gateway) func([]byte) {
	return func(msg []byte) {
		promclient.StreamMessagesTotal.WithLabelValues(exchange).Inc()
		gw.OnRawMessage(msg)
		promclient.StreamGateBufferedGauge.WithLabelValues(exchange).Set(float64(gw.Gate().Buffered()))
	}
}

// Init dials every exchange in parallel and waits for all of them.
func (cm *ConnectionManager) Init() {
	wg := &sync.WaitGroup{}
	for _, adapter := range cm.adapters {
		wg.Add(1)
		go func(a *Adapter) {
			defer wg.Done()
			if err := a.Client.Connect(); err != nil {
				logger.Warnf("failed to connect to %s stream: %s", a.Name, err)
			}
		}(adapter)
	}
	wg.Wait()
}

func (cm *ConnectionManager) Adapter(exchange string) (*Adapter, error) {
	adapter, ok := cm.adapters[exchange]
	if !ok {
		return nil, errors.Errorf("unknown exchange: %s", exchange)
	}
	return adapter, nil
}

// Subscribe opens book and trade streams for the symbol.
func (cm *ConnectionManager) Subscribe(exchange string, symbol *domain.MarketSymbol) error {
	adapter, err := cm.Adapter(exchange)
	if err != nil {
		return err
	}

	pair := strings.ToUpper(symbol.Join(""))
	if err := adapter.Client.SubscribeBook(pair); err != nil {
		return errors.Wrapf(err, "subscribe book %s on %s", pair, exchange)
	}
	if err := adapter.Client.SubscribeTrades(pair); err != nil {
		return errors.Wrapf(err, "subscribe trades %s on %s", pair, exchange)
	}
	return nil
}

func (cm *ConnectionManager) Close() {
	for _, adapter := range cm.adapters {
		if err := adapter.Client.Close(); err != nil {
			logger.Warnf("failed to close %s stream: %s", adapter.Name, err)
		}
	}
}
