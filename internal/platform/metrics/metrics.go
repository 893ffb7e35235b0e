package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	EventsRegistered      *prometheus.CounterVec
	ValidationFailures    *prometheus.CounterVec
	DuplicatesRejected    *prometheus.CounterVec
	SexConflictsRejected  prometheus.Counter
	RegistrationIDsIssued prometheus.Counter
	Transitions           *prometheus.CounterVec
	NotificationsStored   prometheus.Counter
	NotificationsPushed   prometheus.Counter
	NotificationsDropped  prometheus.Counter
	CertificateFailures   prometheus.Counter
}

// New creates all metrics and registers them on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics against the given registerer. Tests use this
// with a fresh registry so repeated setups do not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsRegistered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_events_registered_total",
			Help: "Total number of vital-event records registered, by event type",
		}, []string{"type"}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_validation_failures_total",
			Help: "Total number of submissions rejected by the completeness validator, by event type",
		}, []string{"type"}),
		DuplicatesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_duplicates_rejected_total",
			Help: "Total number of submissions rejected for duplicate identity numbers, by event type",
		}, []string{"type"}),
		SexConflictsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "civreg_sex_conflicts_rejected_total",
			Help: "Total number of submissions rejected for sex-inconsistent identity numbers",
		}),
		RegistrationIDsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "civreg_registration_ids_issued_total",
			Help: "Total number of registration IDs issued by the allocator",
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_workflow_transitions_total",
			Help: "Total number of workflow transitions applied, by transition name",
		}, []string{"transition"}),
		NotificationsStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "civreg_notifications_stored_total",
			Help: "Total number of notifications persisted",
		}),
		NotificationsPushed: factory.NewCounter(prometheus.CounterOpts{
			Name: "civreg_notifications_pushed_total",
			Help: "Total number of notifications delivered to a live push channel",
		}),
		NotificationsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "civreg_notifications_dropped_total",
			Help: "Total number of push deliveries that failed or were dropped",
		}),
		CertificateFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "civreg_certificate_failures_total",
			Help: "Total number of certificate rendering or delivery failures recorded",
		}),
	}
}
