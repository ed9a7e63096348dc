// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - Pipeline run metrics (outcomes, duration)
//   - Reduction metrics (chunks, generations, degraded results)
//   - LLM call metrics (duration, errors, summary length)
//
// All metrics are automatically registered with the Prometheus default registry.
//
// Example usage:
//
//	import "docdigest/internal/observability/metrics"
//
//	func runPipeline(task string) {
//	    start := time.Now()
//	    // ... extract, chunk, reduce ...
//
//	    metrics.RecordPipelineRun(task, "success", time.Since(start))
//	    metrics.RecordGenerations(3)
//	}
package metrics
