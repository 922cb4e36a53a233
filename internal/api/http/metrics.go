package httpapi

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	writes *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_catalog_writes_total",
			Help: "Escritas no catálogo por recurso e ação",
		}, []string{"kind", "action"}),
	}
	reg.MustRegister(m.writes)
	return m
}

func (m *Metrics) write(kind, action string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(kind, action).Inc()
}
