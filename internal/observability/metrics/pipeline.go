package metrics

import "time"

// RecordPipelineRun records the outcome and duration of one pipeline run.
// Outcome is one of: success, degraded, failure, extraction_failed, empty_content.
func RecordPipelineRun(task, outcome string, duration time.Duration) {
	pipelineRunsTotal.WithLabelValues(task, outcome).Inc()
	pipelineDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// RecordChunks records the chunk count produced by the splitter for one run.
func RecordChunks(count int) {
	chunksPerRun.Observe(float64(count))
}

// RecordGenerations records the reduction depth of one completed run.
func RecordGenerations(count int) {
	generationsPerRun.Observe(float64(count))
}

// RecordDegraded increments the degraded result counter.
func RecordDegraded() {
	degradedResultsTotal.Inc()
}

// RecordSummaryLength records the final summary size in runes.
func RecordSummaryLength(runes int) {
	summaryLengthRunes.Observe(float64(runes))
}

// RecordLLMCall records the duration of one LLM call.
func RecordLLMCall(provider, operation string, duration time.Duration) {
	llmCallDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordLLMCallError increments the error counter for one failed LLM call.
func RecordLLMCallError(provider, operation string) {
	llmCallErrorsTotal.WithLabelValues(provider, operation).Inc()
}

// RecordExtraction records the duration of one content extraction by source kind.
func RecordExtraction(source string, duration time.Duration) {
	extractionDuration.WithLabelValues(source).Observe(duration.Seconds())
}
