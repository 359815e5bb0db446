package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts collection mutations. A nil *Metrics records nothing.
type Metrics struct {
	created prometheus.Counter
	deleted prometheus.Counter
}

// NewMetrics creates the product counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "productdesk",
			Name:      "products_created_total",
			Help:      "Total number of created products.",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "productdesk",
			Name:      "products_deleted_total",
			Help:      "Total number of deleted products.",
		}),
	}
	reg.MustRegister(m.created, m.deleted)
	return m
}

func (m *Metrics) productCreated() {
	if m != nil {
		m.created.Inc()
	}
}

func (m *Metrics) productDeleted() {
	if m != nil {
		m.deleted.Inc()
	}
}
