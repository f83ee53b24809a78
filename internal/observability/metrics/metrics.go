package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "library_fees_"

	resultSuccess = "success"
	resultError   = "error"

	cacheHit  = "hit"
	cacheMiss = "miss"
)

var (
	registerOnce sync.Once

	reportGenerateTotal   *prometheus.CounterVec
	reportGenerateLatency *prometheus.HistogramVec
	reportRecordsTotal    prometheus.Counter
	reportPatrons         prometheus.Gauge
	reportFeesTotal       prometheus.Counter

	reportExportTotal   *prometheus.CounterVec
	reportExportLatency *prometheus.HistogramVec

	reportCacheTotal *prometheus.CounterVec
)

// Init registers fee report metrics and, when db is set, DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		reportGenerateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_generate_total",
				Help: "Total fee report runs by result",
			},
			[]string{"result"},
		)
		reportGenerateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_generate_latency_seconds",
				Help:    "Fee report generation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		reportRecordsTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "loan_records_total",
				Help: "Total loan records folded into successful reports",
			},
		)
		reportPatrons = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "last_report_patrons",
				Help: "Distinct patrons in the most recent successful report",
			},
		)
		reportFeesTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "late_fees_reported_total",
				Help: "Sum of late fees across successful reports",
			},
		)
		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total fee report exports by format and result",
			},
			[]string{"format", "result"},
		)
		reportExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Fee report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)
		reportCacheTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_cache_total",
				Help: "Report cache lookups by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			reportGenerateTotal,
			reportGenerateLatency,
			reportRecordsTotal,
			reportPatrons,
			reportFeesTotal,
			reportExportTotal,
			reportExportLatency,
			reportCacheTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveReportGenerate records report generation latency and result.
func ObserveReportGenerate(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if reportGenerateTotal != nil {
		reportGenerateTotal.WithLabelValues(result).Inc()
	}
	if reportGenerateLatency != nil {
		reportGenerateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveReportContents records the size of a successful report.
func ObserveReportContents(records, patrons int, totalFees float64) {
	if records > 0 && reportRecordsTotal != nil {
		reportRecordsTotal.Add(float64(records))
	}
	if reportPatrons != nil {
		reportPatrons.Set(float64(patrons))
	}
	if totalFees > 0 && reportFeesTotal != nil {
		reportFeesTotal.Add(totalFees)
	}
}

// ObserveReportExport records export latency and result.
func ObserveReportExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
	if reportExportLatency != nil {
		reportExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncReportCache counts a cache lookup.
func IncReportCache(hit bool) {
	result := cacheMiss
	if hit {
		result = cacheHit
	}
	if reportCacheTotal != nil {
		reportCacheTotal.WithLabelValues(result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
