package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sortec/entity"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	Submitted     prometheus.Counter
	Decisions     *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	QueueLength   prometheus.Gauge
}

// New creates the metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "sortec_registrations_submitted_total",
			Help: "Total number of registrations accepted for review",
		}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sortec_registration_decisions_total",
			Help: "Approve and deny calls by requested status and outcome",
		}, []string{"status", "outcome"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sortec_notifications_total",
			Help: "Notification delivery attempts by kind and result",
		}, []string{"kind", "result"}),
		QueueLength: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sortec_notification_queue_length",
			Help: "Notifications waiting for a delivery worker",
		}),
	}
}

func (m *Metrics) IncrementSubmitted() {
	m.Submitted.Inc()
}

func (m *Metrics) ObserveDecision(status entity.Status, outcome entity.Outcome) {
	m.Decisions.WithLabelValues(string(status), string(outcome)).Inc()
}

// NotificationDone counts one delivery attempt.
func (m *Metrics) NotificationDone(kind entity.NotificationKind, err error) {
	result := "delivered"
	if err != nil {
		result = "failed"
	}
	m.Notifications.WithLabelValues(string(kind), result).Inc()
}

func (m *Metrics) SetQueueLength(n int) {
	m.QueueLength.Set(float64(n))
}
