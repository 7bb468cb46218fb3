package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	MessagesIngested  prometheus.Counter
	IngestFailures    prometheus.Counter
	AnalysesProcessed prometheus.Counter
	AnalysisFailures  prometheus.Counter
	AICallFailures    prometheus.Counter
	AnalysisDuration  prometheus.Histogram
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mail_assistant_messages_ingested_total",
			Help: "Total number of messages persisted during ingestion",
		}),
		IngestFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mail_assistant_ingest_failures_total",
			Help: "Total number of messages that failed to persist",
		}),
		AnalysesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mail_assistant_analyses_processed_total",
			Help: "Total number of messages run through AI analysis",
		}),
		AnalysisFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mail_assistant_analysis_failures_total",
			Help: "Total number of analysis results that failed to persist",
		}),
		AICallFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mail_assistant_ai_call_failures_total",
			Help: "Total number of failed chat-completion calls",
		}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mail_assistant_analysis_duration_seconds",
			Help:    "Time spent running an analysis batch",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
