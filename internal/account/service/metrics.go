package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics agrupa os contadores do fluxo de saldo e apostas
type Metrics struct {
	funds       prometheus.Counter
	fundsCents  prometheus.Counter
	bets        prometheus.Counter
	betCents    prometheus.Counter
	rejectedVec *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		funds:      prometheus.NewCounter(prometheus.CounterOpts{Name: "site_funds_added_total", Help: "depósitos aceitos"}),
		fundsCents: prometheus.NewCounter(prometheus.CounterOpts{Name: "site_funds_added_cents_total", Help: "valor depositado em centavos"}),
		bets:       prometheus.NewCounter(prometheus.CounterOpts{Name: "site_bets_placed_total", Help: "apostas gravadas"}),
		betCents:   prometheus.NewCounter(prometheus.CounterOpts{Name: "site_bets_placed_cents_total", Help: "valor apostado em centavos"}),
		rejectedVec: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "site_requests_rejected_total", Help: "formulários rejeitados por operação e campo/regra"},
			[]string{"op", "reason"}),
	}
	reg.MustRegister(m.funds, m.fundsCents, m.bets, m.betCents, m.rejectedVec)
	return m
}

func (m *Metrics) fundsAdded(cents int64) {
	if m == nil {
		return
	}
	m.funds.Inc()
	m.fundsCents.Add(float64(cents))
}

func (m *Metrics) betPlaced(cents int64) {
	if m == nil {
		return
	}
	m.bets.Inc()
	m.betCents.Add(float64(cents))
}

func (m *Metrics) rejected(op string, reasons ...string) {
	if m == nil {
		return
	}
	for _, r := range reasons {
		m.rejectedVec.WithLabelValues(op, r).Inc()
	}
}
