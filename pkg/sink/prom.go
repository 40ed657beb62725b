package sink

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus exposes run metrics on a prometheus registry, one gauge per
// metric name, labeled with the metric's unit.
type Prometheus struct {
	registry *prometheus.Registry
	values   *prometheus.GaugeVec
}

func NewPrometheus() *Prometheus {
	r := prometheus.NewRegistry()
	values := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pageweight",
		Name:      "metric",
		Help:      "Metrics emitted by the last measurement run",
	}, []string{"name", "unit"})
	r.MustRegister(values)
	return &Prometheus{
		registry: r,
		values:   values,
	}
}

func (p *Prometheus) Add(name, unit string, value float64) {
	p.values.WithLabelValues(name, unit).Set(value)
}

// Handler serves the registry in prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
