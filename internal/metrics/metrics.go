// Package metrics exposes Prometheus counters for the record API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var RecordsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "financas_records_created_total",
	Help: "Records created, by collection.",
}, []string{"collection"})

var RecordsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "financas_records_deleted_total",
	Help: "Records deleted, by collection.",
}, []string{"collection"})

var ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "financas_import_rows_total",
	Help: "CSV import rows, by outcome (accepted or skipped).",
}, []string{"outcome"})

var Exports = promauto.NewCounter(prometheus.CounterOpts{
	Name: "financas_exports_total",
	Help: "CSV exports served.",
})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "financas_http_requests_total",
	Help: "HTTP requests, by method, route and status class.",
}, []string{"method", "route", "status"})

var RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "financas_http_request_duration_seconds",
	Help:    "HTTP request latency.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route"})

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
