package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	CustomersCreatedTotal    prometheus.Counter
	CustomersDeletedTotal    prometheus.Counter
	AddressesAddedTotal      prometheus.Counter
	PrimarySwapsTotal        prometheus.Counter
	OperationsRejectedTotal  *prometheus.CounterVec
	PrimaryAddressViolations prometheus.Gauge
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "customer_registry_db_query_duration_seconds",
				Help:    "Histogram of database operation latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		CustomersCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "customer_registry_customers_created_total",
				Help: "Total number of customers successfully created.",
			},
		),
		CustomersDeletedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "customer_registry_customers_deleted_total",
				Help: "Total number of customers deleted together with their addresses.",
			},
		),
		AddressesAddedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "customer_registry_addresses_added_total",
				Help: "Total number of secondary addresses added.",
			},
		),
		PrimarySwapsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "customer_registry_primary_address_swaps_total",
				Help: "Total number of committed primary address changes.",
			},
		),
		OperationsRejectedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "customer_registry_operations_rejected_total",
				Help: "Operations refused before or during their transaction, by reason.",
			},
			[]string{"operation", "reason"},
		),
		PrimaryAddressViolations: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "customer_registry_primary_address_violations",
				Help: "Customers found by the last audit without exactly one primary address.",
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordCustomerCreated() {
	Business.CustomersCreatedTotal.Inc()
}

func RecordCustomerDeleted() {
	Business.CustomersDeletedTotal.Inc()
}

func RecordAddressAdded() {
	Business.AddressesAddedTotal.Inc()
}

func RecordPrimarySwap() {
	Business.PrimarySwapsTotal.Inc()
}

func RecordRejected(operation, reason string) {
	Business.OperationsRejectedTotal.WithLabelValues(operation, reason).Inc()
}

func SetPrimaryAddressViolations(count int) {
	Business.PrimaryAddressViolations.Set(float64(count))
}
