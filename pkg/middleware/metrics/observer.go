package metrics

import (
	"errors"
	"time"

	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
	"github.com/prometheus/client_golang/prometheus"
)

// Observer records multipass cache and authentication events.
type Observer struct {
	instances       prometheus.Gauge
	constructions   *prometheus.CounterVec
	constructFails  *prometheus.CounterVec
	constructTime   *prometheus.HistogramVec
	evictions       *prometheus.CounterVec
	idleAtEviction  *prometheus.HistogramVec
	authentications *prometheus.CounterVec
}

var _ multipass.Observer = (*Observer)(nil)

// NewObserver registers the multipass collectors with reg. Collectors that
// are already registered are reused.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{}
	var err error
	if o.instances, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "multipass_instances",
		Help: "cached strategy instances",
	})); err != nil {
		return nil, err
	}
	if o.constructions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "multipass_constructions_total",
		Help: "strategy instances constructed by provider",
	}, []string{"provider"})); err != nil {
		return nil, err
	}
	if o.constructFails, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "multipass_construct_failures_total",
		Help: "failed strategy constructions by provider",
	}, []string{"provider"})); err != nil {
		return nil, err
	}
	if o.constructTime, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "multipass_construct_seconds",
		Help:    "strategy construction latency",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"provider"})); err != nil {
		return nil, err
	}
	if o.evictions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "multipass_evictions_total",
		Help: "idle strategy instances evicted by provider",
	}, []string{"provider"})); err != nil {
		return nil, err
	}
	if o.idleAtEviction, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "multipass_idle_seconds_at_eviction",
		Help:    "time since last use when an instance was evicted",
		Buckets: prometheus.ExponentialBuckets(60, 2, 10),
	}, []string{"provider"})); err != nil {
		return nil, err
	}
	if o.authentications, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "multipass_authentications_total",
		Help: "authenticate calls by provider and result",
	}, []string{"provider", "result"})); err != nil {
		return nil, err
	}
	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (o *Observer) InstanceConstructed(key multipass.Key, took time.Duration) {
	o.constructions.WithLabelValues(key.ProviderType).Inc()
	o.constructTime.WithLabelValues(key.ProviderType).Observe(took.Seconds())
}

func (o *Observer) ConstructFailed(key multipass.Key, _ error) {
	o.constructFails.WithLabelValues(key.ProviderType).Inc()
}

func (o *Observer) InstanceEvicted(key multipass.Key, idle time.Duration) {
	o.evictions.WithLabelValues(key.ProviderType).Inc()
	o.idleAtEviction.WithLabelValues(key.ProviderType).Observe(idle.Seconds())
}

func (o *Observer) Authenticated(key multipass.Key, result string) {
	o.authentications.WithLabelValues(key.ProviderType, result).Inc()
}

func (o *Observer) CacheSize(n int) { o.instances.Set(float64(n)) }
