package metrics

import (
	"time"

	"github.com/AnTengye/contractvigency/backend/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency (seconds)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contractvigency_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Time spent decoding and normalizing an import
	ImportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contractvigency_import_duration_seconds",
			Help:    "Spreadsheet import duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"format", "result"},
	)

	// Contracts per status, counted on every evaluation
	ContractsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contractvigency_contracts_classified_total",
			Help: "Contracts classified per vigency status",
		},
		[]string{"status"},
	)

	InvalidDateCells = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contractvigency_invalid_date_cells_total",
			Help: "Non-empty date cells that could not be parsed",
		},
		[]string{"column"},
	)

	MissingSupplierSeparator = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contractvigency_missing_supplier_separator_total",
			Help: "Supplier cells without a registration id separator",
		},
	)

	// result: hit, miss, error
	SourceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contractvigency_source_fetch_total",
			Help: "Dataset source fetches by cache result",
		},
		[]string{"result"},
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordImportDuration(format, result string, duration time.Duration) {
	ImportDuration.WithLabelValues(format, result).Observe(duration.Seconds())
}

// RecordClassification adds one evaluation's status counts.
func RecordClassification(counts map[model.Status]int) {
	for status, n := range counts {
		ContractsClassified.WithLabelValues(string(status)).Add(float64(n))
	}
}

func RecordInvalidDates(perColumn map[string]int) {
	for column, n := range perColumn {
		InvalidDateCells.WithLabelValues(column).Add(float64(n))
	}
}

func RecordMissingSupplierSeparator(n int) {
	MissingSupplierSeparator.Add(float64(n))
}

func IncrementSourceFetch(result string) {
	SourceFetches.WithLabelValues(result).Inc()
}
