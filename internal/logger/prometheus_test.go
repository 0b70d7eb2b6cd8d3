package logger

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusHook(t *testing.T) {
	reg := prometheus.NewRegistry()

	hook, err := NewPrometheusHook(reg, "storefront-admin")
	require.NoError(t, err)

	again, err := NewPrometheusHook(reg, "storefront-admin")
	require.NoError(t, err)

	hook.Run(nil, zerolog.WarnLevel, "")
	again.Run(nil, zerolog.WarnLevel, "")
	hook.Run(nil, zerolog.ErrorLevel, "")
	hook.Run(nil, zerolog.NoLevel, "")
	PrometheusHook{}.Run(nil, zerolog.InfoLevel, "")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "log_statements_total", families[0].GetName())

	counts := map[string]float64{}

	for _, m := range families[0].GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "level" {
				counts[l.GetValue()] = m.GetCounter().GetValue()
			}
		}
	}

	assert.Equal(t, map[string]float64{"warn": 2, "error": 1}, counts)
}

func TestNewPrometheusHookNilRegisterer(t *testing.T) {
	_, err := NewPrometheusHook(nil, "storefront-admin")
	require.ErrorIs(t, err, ErrNilRegisterer)
}
