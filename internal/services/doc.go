// Package services defines shared utilities consumed by the pipeline, the job
// engine, and the provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp project IDs, job IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap and Details helpers so failures
//     carry a stage, an operation, and an operator hint into log lines.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
