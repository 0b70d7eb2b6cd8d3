package logger

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// PrometheusHook counts log statements per level in log_statements_total.
type PrometheusHook struct {
	statements *prometheus.CounterVec
}

// Run implements zerolog.Hook.
func (h PrometheusHook) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	if level == zerolog.NoLevel || h.statements == nil {
		return
	}

	h.statements.WithLabelValues(level.String()).Inc()
}

// NewPrometheusHook registers the statement counter with reg.
// A second Init for the same service reuses the registered counter.
func NewPrometheusHook(reg prometheus.Registerer, serviceName string) (PrometheusHook, error) {
	if reg == nil {
		return PrometheusHook{}, ErrNilRegisterer
	}

	statements := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "log_statements_total",
			Help:        "Number of log statements, differentiated by log level.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		},
		[]string{"level"},
	)

	if err := reg.Register(statements); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return PrometheusHook{}, err //nolint:wrapcheck
		}

		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return PrometheusHook{}, err //nolint:wrapcheck
		}

		statements = existing
	}

	return PrometheusHook{statements: statements}, nil
}
