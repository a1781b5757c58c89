package rpc

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records backend call outcomes
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the RPC collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metagate",
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "Backend RPC calls by model, verb and result code.",
		}, []string{"model", "verb", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "metagate",
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "Backend RPC call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model", "verb"}),
	}
	reg.MustRegister(m.calls, m.duration)
	return m
}

// Instrument wraps c so every call is counted and timed
func (m *Metrics) Instrument(model string, c Client) Client {
	return &instrumented{model: model, next: c, metrics: m}
}

type instrumented struct {
	model   string
	next    Client
	metrics *Metrics
}

func (i *instrumented) Call(ctx context.Context, verb string, payload Payload, headers Headers) (*Response, error) {
	start := time.Now()
	res, err := i.next.Call(ctx, verb, payload, headers)
	i.metrics.duration.WithLabelValues(i.model, verb).Observe(time.Since(start).Seconds())

	code := "ok"
	switch {
	case err != nil:
		code = strconv.Itoa(AsError(err).Code)
	case res != nil && res.Status != 0:
		code = strconv.Itoa(res.Status)
	}
	i.metrics.calls.WithLabelValues(i.model, verb, code).Inc()
	return res, err
}

func (i *instrumented) Unwrap() Client { return i.next }
