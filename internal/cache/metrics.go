package cache

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

type readOutcome string

const (
	readFresh   readOutcome = "fresh"
	readStale   readOutcome = "stale"
	readMiss    readOutcome = "miss"
	readExpired readOutcome = "expired"
)

// MetricsOptions configures the cache collectors.
type MetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
}

// Metrics exposes Prometheus collectors for entry store instrumentation. A
// nil *Metrics disables instrumentation; every observer tolerates it.
type Metrics struct {
	Reads           *prometheus.CounterVec
	Refreshes       *prometheus.CounterVec
	ComputeFailures prometheus.Counter
}

// NewMetrics constructs and registers the cache collectors.
func NewMetrics(opts MetricsOptions) (*Metrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "credential"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	reads, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "authz_cache",
		Name:      "reads_total",
		Help:      "Total entry store reads partitioned by outcome (fresh, stale, miss, expired).",
	}, []string{"outcome"}))
	if err != nil {
		return nil, fmt.Errorf("register cache reads collector: %w", err)
	}

	refreshes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "authz_cache",
		Name:      "refreshes_total",
		Help:      "Total background recomputations partitioned by result.",
	}, []string{"result"}))
	if err != nil {
		return nil, fmt.Errorf("register cache refreshes collector: %w", err)
	}

	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "authz_cache",
		Name:      "compute_failures_total",
		Help:      "Total synchronous compute failures propagated to callers.",
	})
	if err := reg.Register(failures); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(prometheus.Counter); ok {
				failures = existing
			} else {
				return nil, fmt.Errorf("existing compute failures collector has unexpected type %T", already.ExistingCollector)
			}
		} else {
			return nil, fmt.Errorf("register compute failures collector: %w", err)
		}
	}

	return &Metrics{
		Reads:           reads,
		Refreshes:       refreshes,
		ComputeFailures: failures,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return nil, fmt.Errorf("register collector: %w", err)
	}
	return vec, nil
}

func (m *Metrics) observeRead(outcome readOutcome) {
	if m == nil || m.Reads == nil {
		return
	}
	m.Reads.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) observeRefresh(success bool) {
	if m == nil || m.Refreshes == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.Refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) observeComputeFailure() {
	if m == nil || m.ComputeFailures == nil {
		return
	}
	m.ComputeFailures.Inc()
}
