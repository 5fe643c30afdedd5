package oasvalidator

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultValid   = "valid"
	resultInvalid = "invalid"
	resultSkipped = "skipped"
)

type metrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

// newMetrics registers the validation counters on reg.
// Instances sharing a registry share the counters.
func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		requests: registerCounterVec(reg, prometheus.CounterOpts{
			Namespace: "oasvalidator",
			Name:      "requests_validated_total",
			Help:      "Total number of validated requests by result.",
		}, "result"),
		errors: registerCounterVec(reg, prometheus.CounterOpts{
			Namespace: "oasvalidator",
			Name:      "validation_errors_total",
			Help:      "Total number of validation errors by location.",
		}, "location"),
	}
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels ...string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(opts, labels)
	if reg == nil {
		return counter
	}
	if err := reg.Register(counter); err != nil {
		var registered prometheus.AlreadyRegisteredError
		if errors.As(err, &registered) {
			if existing, ok := registered.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return counter
}

func (m *metrics) observe(result string, parameters, body int) {
	m.requests.WithLabelValues(result).Inc()
	if parameters > 0 {
		m.errors.WithLabelValues("parameters").Add(float64(parameters))
	}
	if body > 0 {
		m.errors.WithLabelValues("body").Add(float64(body))
	}
}
