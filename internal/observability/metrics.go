package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	settlementCounter      *prometheus.CounterVec
	statusCheckCounter     *prometheus.CounterVec
	checksExceededCounter  prometheus.Counter
	claimedGauge           prometheus.Gauge
	ledgerImbalanceCounter *prometheus.CounterVec
	droppedEventCounter    *prometheus.CounterVec
	workerRunCounter       *prometheus.CounterVec
	tokenCreateCounter     *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		settlementCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transaction_settlements_total",
			Help: "Settlement outcomes by transaction type and result",
		}, []string{"type", "result"})

		statusCheckCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_status_checks_total",
			Help: "Gateway status inquiry outcomes",
		}, []string{"result"})

		checksExceededCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transaction_status_checks_exceeded_total",
			Help: "Transactions voided after exhausting status checks",
		})

		claimedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_claimed_batch_size",
			Help: "Transactions claimed by the last settlement poll",
		})

		ledgerImbalanceCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_imbalance_total",
			Help: "Number of times double-entry balances diverged",
		}, []string{"currency"})

		droppedEventCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_events_dropped_total",
			Help: "Lifecycle events dropped due to bus saturation",
		}, []string{"type"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		tokenCreateCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_token_creations_total",
			Help: "Payment token creation outcomes",
		}, []string{"outcome"})

		prometheus.MustRegister(
			settlementCounter,
			statusCheckCounter,
			checksExceededCounter,
			claimedGauge,
			ledgerImbalanceCounter,
			droppedEventCounter,
			workerRunCounter,
			tokenCreateCounter,
		)
	})
}

func IncrementSettlement(txType, result string) {
	if settlementCounter == nil {
		return
	}
	settlementCounter.WithLabelValues(txType, result).Inc()
}

func IncrementStatusCheck(result string) {
	if statusCheckCounter == nil {
		return
	}
	statusCheckCounter.WithLabelValues(result).Inc()
}

func IncrementChecksExceeded() {
	if checksExceededCounter == nil {
		return
	}
	checksExceededCounter.Inc()
}

func SetClaimedBatchSize(size int) {
	if claimedGauge == nil {
		return
	}
	claimedGauge.Set(float64(size))
}

func IncrementLedgerImbalance(currency string) {
	if ledgerImbalanceCounter == nil {
		return
	}
	ledgerImbalanceCounter.WithLabelValues(currency).Inc()
}

func IncrementDroppedEvent(eventType string) {
	if droppedEventCounter == nil {
		return
	}
	droppedEventCounter.WithLabelValues(eventType).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}

func IncrementTokenCreate(outcome string) {
	if tokenCreateCounter == nil {
		return
	}
	tokenCreateCounter.WithLabelValues(outcome).Inc()
}
