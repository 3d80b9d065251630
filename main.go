package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spooky-finn/go-broker-bridge/config"
	"github.com/spooky-finn/go-broker-bridge/domain"
	promclient "github.com/spooky-finn/go-broker-bridge/infrastructure/prometheus"
	"github.com/spooky-finn/go-broker-bridge/provider"
	"github.com/spooky-finn/go-broker-bridge/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %s", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	go promclient.StartPromClientServer(cfg.MetricsAddr)

	host := provider.Host{
		OnOrderEvent: func(event domain.OrderEvent) {
			logrus.WithFields(logrus.Fields{
				"order":  event.LocalOrderID,
				"status": event.Status,
			}).Info("order event")
		},
		Diagnostics: func(d domain.Diagnostic) {
			promclient.DiagnosticsTotal.WithLabelValues(d.Severity.String()).Inc()
			entry := logrus.WithField("code", d.Code)
			switch d.Severity {
			case domain.SeverityError:
				entry.Error(d.Message)
			case domain.SeverityWarning:
				entry.Warn(d.Message)
			default:
				entry.Debug(d.Message)
			}
		},
	}

	connManager := provider.NewConnectionManager(cfg, host)
	connManager.Init()
	defer connManager.Close()

	for _, pair := range cfg.Pairs {
		symbol, err := domain.NewMarketSymbolFromString(pair)
		if err != nil {
			logrus.Fatalf("invalid pair %q: %s", pair, err)
		}
		if err := connManager.Subscribe(cfg.Exchange, symbol); err != nil {
			logrus.Fatalf("failed to subscribe %s on %s: %s", pair, cfg.Exchange, err)
		}
	}

	feed := usecase.NewMarketFeedUseCase(connManager)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigs:
			logrus.Info("shutting down")
			return
		case <-ticker.C:
			quotes, err := feed.DrainQuotes(cfg.Exchange)
			if err != nil {
				logrus.Warnf("failed to drain quotes: %s", err)
				continue
			}
			for _, tick := range quotes {
				logrus.WithFields(logrus.Fields{
					"symbol": tick.Symbol,
					"bid":    tick.BidPrice,
					"ask":    tick.AskPrice,
				}).Debug("quote")
			}

			trades, err := feed.DrainTrades(cfg.Exchange)
			if err != nil {
				logrus.Warnf("failed to drain trades: %s", err)
				continue
			}
			for _, tick := range trades {
				logrus.WithFields(logrus.Fields{
					"symbol": tick.Symbol,
					"price":  tick.Price,
					"size":   tick.Size,
				}).Debug("trade")
			}
		}
	}
}
