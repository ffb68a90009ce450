package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	second, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	first.ConnectSucceeded()
	second.ConnectSucceeded()

	assert.Equal(t, float64(2), testutil.ToFloat64(first.connects.WithLabelValues(resultSuccess)))
}

func TestPrometheusCollector_FactoryLifecycle(t *testing.T) {
	opener := useMockOpener(t, errors.New("no route to host"))

	collector, err := NewPrometheusCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	factory := newTestFactory(t, WithCollector(collector))

	_, err = factory.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.connects.WithLabelValues(resultFailure)))
	assert.Equal(t, float64(0), testutil.ToFloat64(collector.live))

	opener.err = nil
	_, err = factory.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.connects.WithLabelValues(resultSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.live))

	opener.mocks[0].ExpectClose()
	require.NoError(t, factory.Disconnect())
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.disconnects.WithLabelValues(resultSuccess)))
	assert.Equal(t, float64(0), testutil.ToFloat64(collector.live))
}

func TestNoopCollector(t *testing.T) {
	c := NoopCollector()
	assert.NotPanics(t, func() {
		c.ConnectSucceeded()
		c.ConnectFailed()
		c.DisconnectSucceeded()
		c.DisconnectFailed()
	})
}
