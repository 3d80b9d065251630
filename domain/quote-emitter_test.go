package domain_test

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spooky-finn/go-broker-bridge/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteEmitter_DrainSwapsBuffer(t *testing.T) {
	emitter := domain.NewQuoteEmitter()
	emitter.Emit(domain.Quote{Symbol: "BTCUSD", HasBid: true, BidPrice: decimal.NewFromInt(100)})
	emitter.Emit(domain.Quote{Symbol: "BTCUSD", HasBid: true, BidPrice: decimal.NewFromInt(101)})

	ticks := emitter.Drain()
	require.Len(t, ticks, 2)
	assert.Equal(t, "100", ticks[0].BidPrice.String())
	assert.Equal(t, "101", ticks[1].BidPrice.String())
	assert.False(t, ticks[0].Time.IsZero())

	assert.Empty(t, emitter.Drain())
	assert.Equal(t, 0, emitter.Len())
}

func TestQuoteEmitter_ConcurrentProducers(t *testing.T) {
	emitter := domain.NewQuoteEmitter()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				emitter.Emit(domain.Quote{Symbol: "BTCUSD"})
			}
		}()
	}

	drained := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// Drain concurrently with the producers, then sweep up the rest.
	for {
		drained += len(emitter.Drain())
		select {
		case <-done:
			drained += len(emitter.Drain())
			assert.Equal(t, 8*200, drained)
			return
		default:
		}
	}
}

func TestTradeEmitter_NormalizesSize(t *testing.T) {
	emitter := domain.NewTradeEmitter()
	emitter.Emit(domain.TradeEntry{
		Symbol: "BTCUSD",
		Price:  decimal.NewFromInt(100),
		Size:   decimal.NewFromInt(-3),
	})

	ticks := emitter.Drain()
	require.Len(t, ticks, 1)
	assert.Equal(t, "3", ticks[0].Size.String())
}
