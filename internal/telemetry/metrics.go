package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты прохода scheduler'а (label "result").
const (
	PassCompleted = "completed"
	PassFailed    = "failed"
	PassSkipped   = "skipped"
)

// Metrics — Prometheus метрики follow-up рассылки.
//
// Все методы безопасны для nil-получателя: компоненты могут работать
// без метрик (например, в тестах).
type Metrics struct {
	passes           *prometheus.CounterVec
	passDuration     prometheus.Histogram
	leadsEvaluated   prometheus.Counter
	leadsDue         prometheus.Counter
	emailsSent       prometheus.Counter
	deliveryFailures prometheus.Counter
	updateFailures   prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "followup_passes_total",
			Help: "Scheduler passes by result",
		}, []string{"result"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "followup_pass_duration_seconds",
			Help:    "Duration of completed scheduler passes",
			Buckets: prometheus.DefBuckets,
		}),
		leadsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "followup_leads_evaluated_total",
			Help: "Active leads evaluated for due-ness",
		}),
		leadsDue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "followup_leads_due_total",
			Help: "Leads found due for a follow-up",
		}),
		emailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "followup_emails_sent_total",
			Help: "Follow-up emails delivered",
		}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "followup_delivery_failures_total",
			Help: "Follow-up emails that failed to deliver",
		}),
		updateFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "followup_update_failures_total",
			Help: "Delivered emails whose last_contacted_at commit failed",
		}),
	}

	reg.MustRegister(
		m.passes,
		m.passDuration,
		m.leadsEvaluated,
		m.leadsDue,
		m.emailsSent,
		m.deliveryFailures,
		m.updateFailures,
	)
	return m
}

// ObservePass учитывает завершённый проход.
func (m *Metrics) ObservePass(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(result).Inc()
	if result == PassCompleted {
		m.passDuration.Observe(d.Seconds())
	}
}

// LeadEvaluated учитывает проверенный lead.
func (m *Metrics) LeadEvaluated(due bool) {
	if m == nil {
		return
	}
	m.leadsEvaluated.Inc()
	if due {
		m.leadsDue.Inc()
	}
}

// EmailSent учитывает успешную доставку.
func (m *Metrics) EmailSent() {
	if m == nil {
		return
	}
	m.emailsSent.Inc()
}

// DeliveryFailed учитывает неудачную доставку.
func (m *Metrics) DeliveryFailed() {
	if m == nil {
		return
	}
	m.deliveryFailures.Inc()
}

// UpdateFailed учитывает доставленное письмо без зафиксированного контакта.
func (m *Metrics) UpdateFailed() {
	if m == nil {
		return
	}
	m.updateFailures.Inc()
}
