package workflow

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/knowable-run/namwallet/wallet"
)

type Metrics struct {
	reveals   *prometheus.CounterVec
	transfers *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewMetrics registers the workflow metrics in "reg". Collectors already
// registered by another workflow instance are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		reveals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "namwallet",
			Name:      "reveal_total",
			Help:      "Reveal checks by outcome.",
		}, []string{"outcome"}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "namwallet",
			Name:      "transfer_total",
			Help:      "Transfer attempts by kind and result.",
		}, []string{"kind", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "namwallet",
			Name:      "workflow_duration_seconds",
			Help:      "Duration of workflow runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"workflow"}),
	}
	var err error
	if m.reveals, err = register(reg, m.reveals); err != nil {
		return nil, err
	}
	if m.transfers, err = register(reg, m.transfers); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// resultLabel returns "success" for nil error and the error class otherwise.
func resultLabel(err error) string {
	switch wallet.Classify(err) {
	case nil:
		if err == nil {
			return "success"
		}
		return "other"
	case wallet.ErrNotFound:
		return "not_found"
	case wallet.ErrInvalidInput:
		return "invalid_input"
	case wallet.ErrNetworkFailure:
		return "network_failure"
	case wallet.ErrChainRejection:
		return "chain_rejection"
	case wallet.ErrStorageFailure:
		return "storage_failure"
	}
	return "other"
}
