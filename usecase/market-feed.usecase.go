package usecase

import (
	"time"

	"github.com/pkg/errors"

	"github.com/spooky-finn/go-broker-bridge/domain"
	"github.com/spooky-finn/go-broker-bridge/domain/interfaces"
	promclient "github.com/spooky-finn/go-broker-bridge/infrastructure/prometheus"
	"github.com/spooky-finn/go-broker-bridge/provider"
)

// MarketFeedUseCase is the host-facing read side: the batched ticks the
// gateways accumulated since the last poll, plus top-of-book lookups.
type MarketFeedUseCase struct {
	connManager *provider.ConnectionManager
}

func NewMarketFeedUseCase(connManager *provider.ConnectionManager) *MarketFeedUseCase {
	return &MarketFeedUseCase{connManager: connManager}
}

// DrainQuotes hands back every quote tick buffered since the previous
// call and leaves the buffer empty.
func (u *MarketFeedUseCase) DrainQuotes(exchange string) ([]domain.QuoteTick, error) {
	adapter, err := u.connManager.Adapter(exchange)
	if err != nil {
		return nil, err
	}
	ticks := adapter.Gateway.Quotes().Drain()
	promclient.QuoteTicksTotal.WithLabelValues(exchange).Add(float64(len(ticks)))
	return ticks, nil
}

func (u *MarketFeedUseCase) DrainTrades(exchange string) ([]domain.TradeTick, error) {
	adapter, err := u.connManager.Adapter(exchange)
	if err != nil {
		return nil, err
	}
	return adapter.Gateway.Trades().Drain(), nil
}

// StreamQuotes turns the pull-style tick buffer into a channel the
// consumer can range over. The buffer is polled at the given interval;
// unsubscribing stops the poller and closes the stream.
func (u *MarketFeedUseCase) StreamQuotes(exchange string, interval time.Duration) (*interfaces.Subscription[domain.QuoteTick], error) {
	if _, err := u.connManager.Adapter(exchange); err != nil {
		return nil, err
	}

	stream := make(chan domain.QuoteTick, 256)
	stop := make(chan struct{})

	go func() {
		defer close(stream)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ticks, err := u.DrainQuotes(exchange)
				if err != nil {
					return
				}
				for _, tick := range ticks {
					select {
					case stream <- tick:
					case <-stop:
						return
					}
				}
			}
		}
	}()

	return &interfaces.Subscription[domain.QuoteTick]{
		Stream:      stream,
		Unsubscribe: func() { close(stop) },
		Topic:       exchange + ".quotes",
	}, nil
}

func (u *MarketFeedUseCase) TopOfBook(exchange, symbol string) (domain.Quote, error) {
	adapter, err := u.connManager.Adapter(exchange)
	if err != nil {
		return domain.Quote{}, err
	}
	quote, ok := adapter.Gateway.Book().TopOfBook(symbol)
	if !ok {
		return domain.Quote{}, errors.Errorf("no order book for %s on %s", symbol, exchange)
	}
	return quote, nil
}
