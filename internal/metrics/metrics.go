package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ShipmentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "freight_shipments_created_total",
		Help: "Total number of shipments created",
	})

	PaymentsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "freight_payments_confirmed_total",
		Help: "Total number of shipments marked paid by the payment webhook",
	})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freight_status_transitions_total",
		Help: "Total number of shipment status transitions by target status",
	}, []string{"to"})

	AcceptConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "freight_accept_conflicts_total",
		Help: "Total number of accept attempts lost to another driver",
	})

	ConfirmationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freight_confirmations_total",
		Help: "Delivery confirmation attempts by method and result",
	}, []string{"method", "result"})

	OTPDispatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "freight_otp_dispatched_total",
		Help: "Total number of one-time codes sent to recipients",
	})

	NotifyFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freight_notify_failures_total",
		Help: "Notification deliveries that failed, by sink",
	}, []string{"sink"})

	RealtimeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "freight_realtime_connections",
		Help: "Currently connected realtime clients",
	})
)
