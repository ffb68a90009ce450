package postgres

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector receives connection lifecycle events from a Factory.
type Collector interface {
	ConnectSucceeded()
	ConnectFailed()
	DisconnectSucceeded()
	DisconnectFailed()
}

type noopCollector struct{}

// NoopCollector returns a collector that discards all events.
func NoopCollector() Collector {
	return noopCollector{}
}

func (noopCollector) ConnectSucceeded()    {}
func (noopCollector) ConnectFailed()       {}
func (noopCollector) DisconnectSucceeded() {}
func (noopCollector) DisconnectFailed()    {}

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// PrometheusCollector exposes connection lifecycle metrics via Prometheus.
type PrometheusCollector struct {
	connects    *prometheus.CounterVec
	disconnects *prometheus.CounterVec
	live        prometheus.Gauge
}

// NewPrometheusCollector registers the factory metrics with reg, falling back to
// prometheus.DefaultRegisterer. Metrics that are already registered are reused.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	connects, err := registerCounterVec(reg, prometheus.CounterOpts{
		Name: "pgfactory_connect_total",
		Help: "Number of attempts to open the shared database connection, by result.",
	})
	if err != nil {
		return nil, err
	}

	disconnects, err := registerCounterVec(reg, prometheus.CounterOpts{
		Name: "pgfactory_disconnect_total",
		Help: "Number of attempts to close the shared database connection, by result.",
	})
	if err != nil {
		return nil, err
	}

	live := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pgfactory_connection_live",
		Help: "1 while the factory holds a live connection, 0 otherwise.",
	})
	if err := reg.Register(live); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(prometheus.Gauge)
		if !ok {
			return nil, err
		}
		live = existing
	}

	return &PrometheusCollector{connects: connects, disconnects: disconnects, live: live}, nil
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts) (*prometheus.CounterVec, error) {
	counter := prometheus.NewCounterVec(opts, []string{"result"})
	if err := reg.Register(counter); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		return existing, nil
	}
	return counter, nil
}

// ConnectSucceeded counts a successful open and marks the connection live.
func (p *PrometheusCollector) ConnectSucceeded() {
	p.connects.WithLabelValues(resultSuccess).Inc()
	p.live.Set(1)
}

// ConnectFailed counts a failed open.
func (p *PrometheusCollector) ConnectFailed() {
	p.connects.WithLabelValues(resultFailure).Inc()
}

// DisconnectSucceeded counts a clean close.
func (p *PrometheusCollector) DisconnectSucceeded() {
	p.disconnects.WithLabelValues(resultSuccess).Inc()
	p.live.Set(0)
}

// DisconnectFailed counts a failed close. The factory drops the handle anyway.
func (p *PrometheusCollector) DisconnectFailed() {
	p.disconnects.WithLabelValues(resultFailure).Inc()
	p.live.Set(0)
}

var (
	_ Collector = noopCollector{}
	_ Collector = (*PrometheusCollector)(nil)
)
