// Package metrics exposes delivery counters through Prometheus.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/ddship/internal/domain"
)

const namespace = "ddship"

// Collector implements ports.EventEmitter by updating Prometheus metrics.
//
// Counters are shared by every Collector on the same registerer. The queue
// depth gauge carries a "handler" label so each handler reports its own.
type Collector struct {
	reg        prometheus.Registerer
	batches    *prometheus.CounterVec
	records    *prometheus.CounterVec
	attempts   prometheus.Histogram
	dropped    *prometheus.CounterVec
	queueGauge prometheus.Collector
}

// NewCollector registers the delivery metrics with reg. Metrics already
// registered by another Collector are reused. queueSize, when non-nil, backs
// the queue depth gauge labelled with handlerID.
func NewCollector(reg prometheus.Registerer, handlerID string, queueSize func() int) (*Collector, error) {
	c := &Collector{reg: reg}

	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batches_total",
		Help:      "Batches that finished delivery, by outcome.",
	}, []string{"outcome"})
	if err := register(reg, batches, &c.batches); err != nil {
		return nil, err
	}

	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_total",
		Help:      "Records that finished delivery, by outcome.",
	}, []string{"outcome"})
	if err := register(reg, records, &c.records); err != nil {
		return nil, err
	}

	attempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "delivery_attempts",
		Help:      "Attempts needed per batch.",
		Buckets:   []float64{1, 2, 3, 5, 8},
	})
	if err := register(reg, attempts, &c.attempts); err != nil {
		return nil, err
	}

	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_dropped_total",
		Help:      "Records discarded before batching, by reason.",
	}, []string{"reason"})
	if err := register(reg, dropped, &c.dropped); err != nil {
		return nil, err
	}

	if queueSize != nil {
		gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "queue_size",
			Help:        "Records waiting in the queue.",
			ConstLabels: prometheus.Labels{"handler": handlerID},
		}, func() float64 { return float64(queueSize()) })
		if err := reg.Register(gauge); err != nil {
			return nil, fmt.Errorf("register queue gauge: %w", err)
		}
		c.queueGauge = gauge
	}
	return c, nil
}

// register adds col to reg and stores it in dst. If an identical collector
// is already registered, dst gets that one instead.
func register[T prometheus.Collector](reg prometheus.Registerer, col T, dst *T) error {
	err := reg.Register(col)
	if err == nil {
		*dst = col
		return nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			*dst = existing
			return nil
		}
	}
	return fmt.Errorf("register metric: %w", err)
}

// Unregister removes this Collector's queue gauge. Shared counters stay.
func (c *Collector) Unregister() {
	if c.queueGauge != nil {
		c.reg.Unregister(c.queueGauge)
	}
}

// OnDeliverySuccess counts a delivered batch.
func (c *Collector) OnDeliverySuccess(res domain.DeliveryResult) {
	c.observe(res)
}

// OnDeliveryFailure counts a dropped batch.
func (c *Collector) OnDeliveryFailure(res domain.DeliveryResult) {
	c.observe(res)
}

// OnRecordsDropped counts records discarded before batching.
func (c *Collector) OnRecordsDropped(reason domain.DropReason, count int) {
	c.dropped.WithLabelValues(string(reason)).Add(float64(count))
}

func (c *Collector) observe(res domain.DeliveryResult) {
	outcome := res.Outcome.String()
	c.batches.WithLabelValues(outcome).Inc()
	c.records.WithLabelValues(outcome).Add(float64(res.Records))
	c.attempts.Observe(float64(res.Attempts))
}
