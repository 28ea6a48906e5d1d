package prometheus_monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// https://prometheus.io/docs/guides/go-application/

const (
	namespace = "storage_market"
)

var (
	connectionStatusMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connection_status",
		Help:      "Whether the ledger connection is currently established (1) or not (0)",
	})
	reconnectMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconnects",
		Help:      "The total number of times the ledger connection was re-established",
	})
	idleDisconnectMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idle_disconnects",
		Help:      "The total number of times the ledger connection was dropped by the idle timer",
	})
	placedOrderMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "placed_orders",
		Help:      "The total number of storage orders successfully placed on chain",
	})
	addedPrepaidMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "added_prepaid",
		Help:      "The total number of prepaid top-ups successfully submitted",
	})
	submissionFailedMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_failed",
		Help:      "The total number of submissions that were rejected or never confirmed",
	})
	wrongMethodMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wrong_method_rejections",
		Help:      "The total number of payloads rejected before broadcast because their call did not match the invoked operation",
	})
)

func SetConnectionStatus(status float64) {
	connectionStatusMetric.Set(status)
}

func TickReconnect() {
	reconnectMetric.Inc()
}

func TickIdleDisconnect() {
	idleDisconnectMetric.Inc()
}

func TickPlacedOrder() {
	placedOrderMetric.Inc()
}

func TickAddedPrepaid() {
	addedPrepaidMetric.Inc()
}

func TickSubmissionFailed() {
	submissionFailedMetric.Inc()
}

func TickWrongMethod() {
	wrongMethodMetric.Inc()
}
