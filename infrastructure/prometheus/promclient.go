package promclient

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var StreamMessagesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stream_messages_total",
		Help: "raw stream frames received per exchange",
	},
	[]string{"exchange"},
)

var StreamGateBufferedGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "stream_gate_buffered_messages",
		Help: "frames parked behind the stream gate",
	},
	[]string{"exchange"},
)

var DiagnosticsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "diagnostics_total",
		Help: "diagnostic events emitted per severity",
	},
	[]string{"severity"},
)

var QuoteTicksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quote_ticks_total",
		Help: "top-of-book ticks emitted per exchange",
	},
	[]string{"exchange"},
)

func StartPromClientServer(addr string) {
	reg := prometheus.NewRegistry()
	promHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	reg.MustRegister(StreamMessagesTotal)
	reg.MustRegister(StreamGateBufferedGauge)
	reg.MustRegister(DiagnosticsTotal)
	reg.MustRegister(QuoteTicksTotal)
	reg.MustRegister(collectors.NewGoCollector())

	http.Handle("/metrics", promHandler)
	logrus.Infof("prometheus server listening at %s", addr)

	if err := http.ListenAndServe(addr, nil); err != nil {
		logrus.Fatalf("failed to serve: %v", err)
	}
}
