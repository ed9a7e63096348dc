package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pipelineRunsTotal counts pipeline runs by task type and outcome.
	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docdigest_pipeline_runs_total",
			Help: "Total number of summarization pipeline runs",
		},
		[]string{"task", "outcome"},
	)

	// pipelineDuration tracks end-to-end pipeline duration by task type.
	pipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docdigest_pipeline_duration_seconds",
			Help:    "End-to-end summarization pipeline duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"task"},
	)

	// chunksPerRun tracks how many chunks the splitter produced per run.
	chunksPerRun = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docdigest_chunks_per_run",
			Help:    "Number of chunks produced by the splitter per pipeline run",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		},
	)

	// generationsPerRun tracks reduction loop depth per run.
	generationsPerRun = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docdigest_generations_per_run",
			Help:    "Number of reduction generations performed per pipeline run",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8},
		},
	)

	// degradedResultsTotal counts runs that fell back to a degraded result.
	degradedResultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docdigest_degraded_results_total",
			Help: "Total number of pipeline runs that produced a degraded result",
		},
	)

	// summaryLengthRunes tracks final summary size in runes.
	summaryLengthRunes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docdigest_summary_length_runes",
			Help:    "Length of the final summary in runes",
			Buckets: []float64{100, 500, 1000, 2000, 4000, 8000, 16000},
		},
	)

	// llmCallDuration tracks individual LLM call duration by provider and operation.
	llmCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docdigest_llm_call_duration_seconds",
			Help:    "Duration of individual LLM calls in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "operation"},
	)

	// llmCallErrorsTotal counts failed LLM calls by provider and operation.
	llmCallErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docdigest_llm_call_errors_total",
			Help: "Total number of failed LLM calls",
		},
		[]string{"provider", "operation"},
	)

	// extractionDuration tracks content extraction duration by source kind.
	extractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docdigest_extraction_duration_seconds",
			Help:    "Duration of content extraction in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"source"},
	)
)
