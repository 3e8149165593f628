package metrics

import (
	"net/http"

	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewPromHttpHandler returns the /metrics handler.
func NewPromHttpHandler() http.Handler { return promhttp.Handler() }

// ProvideMetrics is the Fx provider used by your server wiring.
func ProvideMetrics() http.Handler { return NewPromHttpHandler() }

// ProvideObserver registers the multipass collectors with the default registry.
func ProvideObserver() (multipass.Observer, error) {
	o, err := NewObserver(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	return o, nil
}
