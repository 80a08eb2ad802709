// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	UpdatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_updates_total",
		Help: "Inbound Telegram updates processed",
	})
	HandlerPanicsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_handler_panics_total",
		Help: "Panics recovered at the dispatch boundary",
	})
	SendErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Failed outbound message sends",
	})
	GenerationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "generation_seconds",
		Help:    "Duration of external generation calls",
		Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90, 120},
	}, []string{"kind", "status"})
	PaymentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_total",
		Help: "Completed payment events",
	}, []string{"kind"})
	StarsCollectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stars_collected_total",
		Help: "Total Stars amount across completed payments",
	})
	BroadcastFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_failures_total",
		Help: "Per-recipient broadcast send failures",
	})
)

// MustRegister registers every collector with the given registerer.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		UpdatesTotal,
		HandlerPanicsTotal,
		SendErrorsTotal,
		GenerationSeconds,
		PaymentsTotal,
		StarsCollectedTotal,
		BroadcastFailuresTotal,
	)
}

// ObserveGeneration records the duration and outcome of one generation call.
func ObserveGeneration(kind string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	GenerationSeconds.WithLabelValues(kind, status).Observe(time.Since(start).Seconds())
}

// IncPayment records one completed payment of the given kind and amount.
func IncPayment(kind string, amount int) {
	PaymentsTotal.WithLabelValues(kind).Inc()
	if amount > 0 {
		StarsCollectedTotal.Add(float64(amount))
	}
}
