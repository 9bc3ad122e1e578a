package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadDeskMetrics exposes counters/histograms for intake and conversation flows.
type LeadDeskMetrics struct {
	leadsCreated    prometheus.Counter
	intakeRejected  *prometheus.CounterVec
	messagesPosted  *prometheus.CounterVec
	dashboardAccess *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec
}

func NewLeadDeskMetrics(reg prometheus.Registerer) *LeadDeskMetrics {
	m := &LeadDeskMetrics{
		leadsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sitecraft",
			Subsystem: "intake",
			Name:      "leads_created_total",
			Help:      "Total leads created through the intake form",
		}),
		intakeRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitecraft",
			Subsystem: "intake",
			Name:      "rejected_total",
			Help:      "Intake submissions rejected before reaching the store",
		}, []string{"reason"}),
		messagesPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitecraft",
			Subsystem: "conversation",
			Name:      "messages_posted_total",
			Help:      "Messages appended to lead threads",
		}, []string{"sender", "status"}),
		dashboardAccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitecraft",
			Subsystem: "dashboard",
			Name:      "access_total",
			Help:      "Client dashboard access checks",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitecraft",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Notification emails by kind and outcome",
		}, []string{"kind", "status"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sitecraft",
			Subsystem: "store",
			Name:      "operation_seconds",
			Help:      "Latency of lead and message store calls made by handlers",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.leadsCreated, m.intakeRejected, m.messagesPosted, m.dashboardAccess, m.notifications, m.storeLatency)
	return m
}

func (m *LeadDeskMetrics) ObserveLeadCreated() {
	if m == nil {
		return
	}
	m.leadsCreated.Inc()
}

func (m *LeadDeskMetrics) ObserveIntakeRejected(reason string) {
	if m == nil {
		return
	}
	m.intakeRejected.WithLabelValues(reason).Inc()
}

func (m *LeadDeskMetrics) ObserveMessagePosted(sender string, ok bool) {
	if m == nil {
		return
	}
	status := "stored"
	if !ok {
		status = "failed"
	}
	m.messagesPosted.WithLabelValues(sender, status).Inc()
}

// ObserveDashboardAccess records "granted", "denied" or "error".
func (m *LeadDeskMetrics) ObserveDashboardAccess(result string) {
	if m == nil {
		return
	}
	m.dashboardAccess.WithLabelValues(result).Inc()
}

func (m *LeadDeskMetrics) ObserveNotification(kind, status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, status).Inc()
}

func (m *LeadDeskMetrics) ObserveStoreLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.storeLatency.WithLabelValues(operation).Observe(seconds)
}
