// Package metrics exposes Prometheus counters for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"campaign-insights-service/internal/model"
)

var (
	ingestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_ingests_total",
		Help: "Ingest attempts by source and outcome.",
	}, []string{"source", "status"})

	rowsPersistedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_rows_persisted_total",
		Help: "Valid rows persisted, by source.",
	}, []string{"source"})

	rowsDiscardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_rows_discarded_total",
		Help: "Rows dropped during validation, by source.",
	}, []string{"source"})

	issuesDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_issues_detected_total",
		Help: "Issue occurrences detected by the anomaly engine, by rule.",
	}, []string{"type"})
)

func IngestSucceeded(source model.Source) {
	ingestsTotal.WithLabelValues(string(source), "success").Inc()
}

func IngestRejected(source model.Source) {
	ingestsTotal.WithLabelValues(string(source), "rejected").Inc()
}

func RowsPersisted(source model.Source, n int) {
	rowsPersistedTotal.WithLabelValues(string(source)).Add(float64(n))
}

func RowsDiscarded(source model.Source, n int) {
	if n > 0 {
		rowsDiscardedTotal.WithLabelValues(string(source)).Add(float64(n))
	}
}

func IssuesDetected(issueType model.IssueType, n int) {
	if n > 0 {
		issuesDetectedTotal.WithLabelValues(string(issueType)).Add(float64(n))
	}
}
